package db

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // The database driver
)

// DB is the global database connection.
var DB *sqlx.DB

// InitDB initializes the database connection.
func InitDB() {
	var err error
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	DB, err = sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err = DB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Database connection established")
}

// InitSchema creates the tables if they do not exist yet. Safe to call on
// every startup.
func InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS episodes (
		video_id        TEXT PRIMARY KEY,
		channel_id      TEXT NOT NULL,
		channel_name    TEXT NOT NULL,
		title           TEXT NOT NULL,
		published_at    TIMESTAMPTZ NOT NULL,
		transcript_path TEXT,
		thumbnail_path  TEXT,
		discovered_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS posts (
		id                     BIGSERIAL PRIMARY KEY,
		video_id               TEXT NOT NULL UNIQUE REFERENCES episodes(video_id),
		tweets                 TEXT NOT NULL,
		reddit_title           TEXT NOT NULL DEFAULT '',
		reddit_body            TEXT NOT NULL DEFAULT '',
		suggested_groups       TEXT NOT NULL DEFAULT '[]',
		state                  TEXT NOT NULL,
		scheduled_primary      TIMESTAMPTZ,
		scheduled_secondary    TIMESTAMPTZ,
		next_attempt_primary   TIMESTAMPTZ,
		next_attempt_secondary TIMESTAMPTZ,
		approved_at            TIMESTAMPTZ,
		posted_at_primary      TIMESTAMPTZ,
		posted_at_secondary    TIMESTAMPTZ,
		attempts_primary       INT NOT NULL DEFAULT 0,
		attempts_secondary     INT NOT NULL DEFAULT 0,
		last_error             TEXT,
		primary_url            TEXT,
		secondary_urls         TEXT,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_posts_state ON posts(state);
	CREATE INDEX IF NOT EXISTS idx_posts_scheduled ON posts(scheduled_primary);
	`
	_, err := DB.Exec(schema)
	return err
}
