package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"pod2social/internal/approval"
	"pod2social/internal/db"
)

// Interactive review terminal. Controls per post:
//
//	a  approve  (will post at scheduled time)
//	r  reject   (won't post)
//	s  skip     (leave pending, review later)
//	q  quit session
func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()

	pending, err := db.GetPendingPosts()
	if err != nil {
		log.Fatalf("could not load pending posts: %v", err)
	}
	if len(pending) == 0 {
		fmt.Println("\nNo pending posts to review.")
		return
	}

	fmt.Printf("\nPending posts: %d\n", len(pending))

	reader := bufio.NewReader(os.Stdin)
	approved, rejected, skipped := 0, 0, 0

session:
	for i, post := range pending {
		fmt.Printf("\n--- Post %d of %d ---\n", i+1, len(pending))
		fmt.Printf("Episode:  %s\n", post.EpisodeTitle)
		fmt.Printf("Channel:  %s\n", post.ChannelName)
		renderThread(os.Stdout, post.Tweets)
		renderReddit(os.Stdout, post.RedditTitle, post.RedditBody, post.SuggestedGroups)

		switch prompt(reader) {
		case "a":
			if err := approval.Decide(post.ID, approval.DecisionApprove); err != nil {
				fmt.Printf("  could not approve: %v\n", err)
				continue
			}
			fmt.Println("  ✓ Approved")
			approved++
		case "r":
			if err := approval.Decide(post.ID, approval.DecisionReject); err != nil {
				fmt.Printf("  could not reject: %v\n", err)
				continue
			}
			fmt.Println("  ✗ Rejected")
			rejected++
		case "q":
			fmt.Println("\nSession ended early.")
			break session
		default:
			fmt.Println("  → Skipped")
			skipped++
		}
	}

	fmt.Printf("\nDone: %d approved, %d rejected, %d skipped\n", approved, rejected, skipped)
	if approved > 0 {
		fmt.Println("Approved posts will be scheduled and go out on the next dispatch runs.")
	}
}

func prompt(reader *bufio.Reader) string {
	fmt.Print("\n  [a]pprove  [r]eject  [s]kip  [q]uit > ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return "q"
	}
	return strings.ToLower(strings.TrimSpace(line))
}

func renderThread(w io.Writer, tweetsJSON string) {
	var tweets []string
	if err := json.Unmarshal([]byte(tweetsJSON), &tweets); err != nil {
		fmt.Fprintf(w, "  (malformed thread content: %v)\n", err)
		return
	}
	fmt.Fprintln(w, "\nX thread:")
	for i, tweet := range tweets {
		fmt.Fprintf(w, "  %d. %s\n     (%d chars)\n", i+1, tweet, len([]rune(tweet)))
	}
}

func renderReddit(w io.Writer, title, body, groupsJSON string) {
	var groups []string
	if err := json.Unmarshal([]byte(groupsJSON), &groups); err != nil {
		fmt.Fprintf(w, "  (malformed group list: %v)\n", err)
		return
	}
	fmt.Fprintln(w, "\nReddit post:")
	fmt.Fprintf(w, "  Title: %s\n", title)
	fmt.Fprintf(w, "  Subreddits: %s\n", strings.Join(groups, ", "))
	fmt.Fprintf(w, "  Body:\n")
	for _, line := range strings.Split(body, "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}
