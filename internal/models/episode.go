package models

import "time"

type Episode struct {
	VideoID        string    `db:"video_id"`
	ChannelID      string    `db:"channel_id"`
	ChannelName    string    `db:"channel_name"`
	Title          string    `db:"title"`
	PublishedAt    time.Time `db:"published_at"`
	TranscriptPath *string   `db:"transcript_path"`
	ThumbnailPath  *string   `db:"thumbnail_path"`
	DiscoveredAt   time.Time `db:"discovered_at"`
}
