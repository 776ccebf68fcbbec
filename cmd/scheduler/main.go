package main

import (
	"log"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"pod2social/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddr},
		&asynq.SchedulerOpts{},
	)

	checkTask, err := tasks.NewCheckAllChannelsTask()
	if err != nil {
		log.Fatalf("could not create discovery task: %v", err)
	}
	if _, err := scheduler.Register(interval("DISCOVER_INTERVAL", "@every 1h"), checkTask); err != nil {
		log.Fatalf("could not register discovery task: %v", err)
	}

	dispatchTask, err := tasks.NewDispatchTask()
	if err != nil {
		log.Fatalf("could not create dispatch task: %v", err)
	}
	if _, err := scheduler.Register(interval("DISPATCH_INTERVAL", "@every 5m"), dispatchTask); err != nil {
		log.Fatalf("could not register dispatch task: %v", err)
	}

	log.Printf("Scheduler starting (commit: %s)", CommitSHA)
	if err := scheduler.Run(); err != nil {
		log.Fatalf("could not run scheduler: %v", err)
	}
}

func interval(envKey, fallback string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return fallback
}
