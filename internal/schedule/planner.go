package schedule

import (
	"errors"
	"fmt"
	"time"

	"pod2social/internal/config"
)

// ErrExhausted means no free window exists within the look-ahead horizon.
// The affected posts stay unscheduled and are retried on the next pass.
var ErrExhausted = errors.New("no free posting window within horizon")

// Window is a recurring daily time-of-day slot in the planner's timezone.
type Window struct {
	Hour   int
	Minute int
}

func ParseWindows(specs []string) ([]Window, error) {
	if len(specs) == 0 {
		return nil, errors.New("no posting windows configured")
	}
	windows := make([]Window, 0, len(specs))
	for _, s := range specs {
		var w Window
		if _, err := fmt.Sscanf(s, "%d:%d", &w.Hour, &w.Minute); err != nil {
			return nil, fmt.Errorf("invalid posting window %q: %w", s, err)
		}
		if w.Hour < 0 || w.Hour > 23 || w.Minute < 0 || w.Minute > 59 {
			return nil, fmt.Errorf("invalid posting window %q", s)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// Planner assigns (day, window) slots. It is a pure value: all state lives in
// the claimed-slot set passed by the caller.
type Planner struct {
	windows     []Window
	loc         *time.Location
	offset      time.Duration
	horizonDays int
}

func NewPlanner(cfg config.Schedule) (*Planner, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	windows, err := ParseWindows(cfg.PostingWindows)
	if err != nil {
		return nil, err
	}
	return &Planner{
		windows:     windows,
		loc:         loc,
		offset:      cfg.SecondaryOffset(),
		horizonDays: cfg.HorizonDays,
	}, nil
}

// SlotKey identifies a (day, window) pair in the planner's timezone. Two
// posts may never share a key.
func (p *Planner) SlotKey(t time.Time) string {
	return t.In(p.loc).Format("2006-01-02 15:04")
}

// Next returns the earliest window instant strictly after now whose
// (day, window) pair is not in claimed. Windows are tried in configured
// order, day by day, up to the horizon.
func (p *Planner) Next(now time.Time, claimed map[string]bool) (time.Time, error) {
	local := now.In(p.loc)
	for day := 0; day < p.horizonDays; day++ {
		date := local.AddDate(0, 0, day)
		for _, w := range p.windows {
			slot := time.Date(date.Year(), date.Month(), date.Day(), w.Hour, w.Minute, 0, 0, p.loc)
			if !slot.After(now) {
				continue
			}
			if claimed[p.SlotKey(slot)] {
				continue
			}
			return slot, nil
		}
	}
	return time.Time{}, ErrExhausted
}

// Secondary returns the dependent secondary-platform time for a primary slot.
func (p *Planner) Secondary(primary time.Time) time.Time {
	return primary.Add(p.offset)
}

// Horizon returns the claimed-slot query range for a pass starting at now.
func (p *Planner) Horizon(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -1), now.AddDate(0, 0, p.horizonDays+1)
}
