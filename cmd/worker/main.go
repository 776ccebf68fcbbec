package main

import (
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"pod2social/internal/config"
	"pod2social/internal/db"
	"pod2social/internal/dispatch"
	"pod2social/internal/generate"
	"pod2social/internal/notify"
	"pod2social/internal/publish"
	"pod2social/internal/schedule"
	"pod2social/internal/worker"
	"pod2social/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()
	if err := db.InitSchema(); err != nil {
		log.Fatalf("could not initialize schema: %v", err)
	}

	cfg, err := config.Load(configDir())
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	planner, err := schedule.NewPlanner(cfg.Schedule)
	if err != nil {
		log.Fatalf("could not build planner: %v", err)
	}

	var notifier dispatch.Notifier
	if tn := notify.NewTelegramNotifier(); tn != nil {
		notifier = tn
	}
	dispatcher := dispatch.New(publish.NewXClient(), publish.NewRedditClient(), cfg, notifier)

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer client.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 1, // Process one task at a time to be gentle with YouTube
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			// Custom retry delay function for exponential backoff
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := 5 * time.Minute
				maxDelay := 24 * time.Hour

				// Exponential backoff: 5min, 10min, 20min, 40min, 80min, etc.
				for i := 0; i < n; i++ {
					delay *= 2
					if delay > maxDelay {
						delay = maxDelay
						break
					}
				}

				log.Printf("Task %s failed %d times, retrying in %v", task.Type(), n+1, delay)
				return delay
			},
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(client, cfg, generate.NewOpenAIGenerator(), planner, dispatcher)

	mux.HandleFunc(tasks.TypeCheckAllChannels, taskHandler.HandleCheckAllChannelsTask)
	mux.HandleFunc(tasks.TypeCheckChannel, taskHandler.HandleCheckChannelTask)
	mux.HandleFunc(tasks.TypeProcessEpisode, taskHandler.HandleProcessEpisodeTask)
	mux.HandleFunc(tasks.TypeDispatch, taskHandler.HandleDispatchTask)

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}

func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	return "config"
}
