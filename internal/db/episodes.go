package db

import (
	"time"

	"pod2social/internal/models"
)

func GetEpisodeByVideoID(videoID string) (models.Episode, error) {
	episode := models.Episode{}
	err := DB.Get(&episode, "SELECT * FROM episodes WHERE video_id = $1", videoID)
	return episode, err
}

func CreateEpisode(e models.Episode) (models.Episode, error) {
	episode := models.Episode{}
	err := DB.Get(&episode, `
		INSERT INTO episodes (video_id, channel_id, channel_name, title, published_at, transcript_path, thumbnail_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`,
		e.VideoID, e.ChannelID, e.ChannelName, e.Title, e.PublishedAt, e.TranscriptPath, e.ThumbnailPath)
	return episode, err
}

func CountEpisodesSince(since time.Time) (int, error) {
	var count int
	err := DB.Get(&count, "SELECT COUNT(*) FROM episodes WHERE discovered_at >= $1", since)
	return count, err
}
