package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Channel is one monitored YouTube channel or playlist. If PlaylistID is set
// it takes precedence over the channel's uploads playlist.
type Channel struct {
	Name          string   `yaml:"name"`
	ID            string   `yaml:"id"`
	PlaylistID    string   `yaml:"playlist_id"`
	CheckKeywords []string `yaml:"check_keywords"`
	TopicTags     []string `yaml:"topic_tags"`
}

// Group is one subreddit in the allow-list.
type Group struct {
	Name         string `yaml:"name"`
	PromoAllowed bool   `yaml:"promo_allowed"`
}

// Schedule holds the window-scheduler and retry-policy settings.
type Schedule struct {
	Timezone               string   `yaml:"timezone"`
	PostingWindows         []string `yaml:"posting_windows"`
	SecondaryOffsetMinutes int      `yaml:"secondary_offset_minutes"`
	MaxAttempts            int      `yaml:"max_attempts"`
	BackoffBaseMinutes     int      `yaml:"backoff_base_minutes"`
	MaxGroups              int      `yaml:"max_groups"`
	HorizonDays            int      `yaml:"horizon_days"`
}

func (s Schedule) SecondaryOffset() time.Duration {
	return time.Duration(s.SecondaryOffsetMinutes) * time.Minute
}

func (s Schedule) BackoffBase() time.Duration {
	return time.Duration(s.BackoffBaseMinutes) * time.Minute
}

type Config struct {
	Channels []Channel
	// Groups maps a topic tag to its allowed subreddits.
	Groups   map[string][]Group
	Schedule Schedule

	AutoApprove bool
	DryRun      bool
}

// Load reads channels.yaml, groups.yaml and schedule.yaml from dir and the
// AUTO_APPROVE / DRY_RUN environment flags.
func Load(dir string) (*Config, error) {
	cfg := &Config{
		AutoApprove: os.Getenv("AUTO_APPROVE") == "true",
		DryRun:      os.Getenv("DRY_RUN") == "true",
	}

	var channels struct {
		Channels []Channel `yaml:"channels"`
	}
	if err := readYAML(filepath.Join(dir, "channels.yaml"), &channels); err != nil {
		return nil, fmt.Errorf("failed to load channels config: %w", err)
	}
	cfg.Channels = channels.Channels

	var groups struct {
		TopicTags map[string][]Group `yaml:"topic_tags"`
	}
	if err := readYAML(filepath.Join(dir, "groups.yaml"), &groups); err != nil {
		return nil, fmt.Errorf("failed to load groups config: %w", err)
	}
	cfg.Groups = groups.TopicTags

	if err := readYAML(filepath.Join(dir, "schedule.yaml"), &cfg.Schedule); err != nil {
		return nil, fmt.Errorf("failed to load schedule config: %w", err)
	}
	applyScheduleDefaults(&cfg.Schedule)

	return cfg, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func applyScheduleDefaults(s *Schedule) {
	if s.Timezone == "" {
		s.Timezone = "America/New_York"
	}
	if len(s.PostingWindows) == 0 {
		s.PostingWindows = []string{"09:00", "12:00", "17:00", "19:00"}
	}
	if s.SecondaryOffsetMinutes == 0 {
		s.SecondaryOffsetMinutes = 30
	}
	if s.MaxAttempts == 0 {
		s.MaxAttempts = 3
	}
	if s.BackoffBaseMinutes == 0 {
		s.BackoffBaseMinutes = 5
	}
	if s.MaxGroups == 0 {
		s.MaxGroups = 3
	}
	if s.HorizonDays == 0 {
		s.HorizonDays = 14
	}
}
