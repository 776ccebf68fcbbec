package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"pod2social/internal/config"
)

const (
	TypeCheckAllChannels = "channels:checkall"
	TypeCheckChannel     = "channel:check"
	TypeProcessEpisode   = "episode:process"
	TypeDispatch         = "posts:dispatch"
)

type CheckChannelTaskPayload struct {
	Channel config.Channel
}

func NewCheckChannelTask(channel config.Channel) (*asynq.Task, error) {
	payload, err := json.Marshal(CheckChannelTaskPayload{Channel: channel})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCheckChannel, payload), nil
}

type ProcessEpisodeTaskPayload struct {
	VideoID string
	Title   string
	Channel config.Channel
}

func NewProcessEpisodeTask(videoID, title string, channel config.Channel) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessEpisodeTaskPayload{
		VideoID: videoID,
		Title:   title,
		Channel: channel,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessEpisode, payload), nil
}

func NewCheckAllChannelsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeCheckAllChannels, nil), nil
}

func NewDispatchTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeDispatch, nil), nil
}
