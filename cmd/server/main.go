package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"pod2social/internal/db"
	"pod2social/internal/middleware"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	rl := middleware.NewRateLimiterMiddleware(2, 5)
	http.Handle("/status", rl.Middleware(http.HandlerFunc(statusHandler)))

	log.Printf("Starting server on :%s\n", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

type statusResponse struct {
	States       map[string]int `json:"states"`
	CreatedToday int            `json:"created_today"`
}

func statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := db.CountPostsByState()
	if err != nil {
		log.Printf("status: failed to count posts: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	createdToday, err := db.CountPostsCreatedSince(midnight)
	if err != nil {
		log.Printf("status: failed to count today's posts: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := statusResponse{States: make(map[string]int, len(counts)), CreatedToday: createdToday}
	for _, c := range counts {
		resp.States[c.State] = c.Count
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("status: failed to encode response: %v", err)
	}
}
