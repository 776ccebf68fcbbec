package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoubles(t *testing.T) {
	base := 5 * time.Minute

	assert.Equal(t, 5*time.Minute, Backoff(base, 1))
	assert.Equal(t, 10*time.Minute, Backoff(base, 2))
	assert.Equal(t, 20*time.Minute, Backoff(base, 3))
	assert.Equal(t, 40*time.Minute, Backoff(base, 4))
}

func TestBackoffCaps(t *testing.T) {
	base := 5 * time.Minute

	assert.Equal(t, 2*time.Hour, Backoff(base, 7))
	assert.Equal(t, 2*time.Hour, Backoff(base, 50))
}

func TestBackoffClampsBadAttempt(t *testing.T) {
	base := 5 * time.Minute

	assert.Equal(t, base, Backoff(base, 0))
	assert.Equal(t, base, Backoff(base, -3))
}
