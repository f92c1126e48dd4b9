package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/keremar/watchroom/internal/domain"
)

func TestAdjustedPosition(t *testing.T) {
	// 200ms of propagation delay means the sender's player is 0.2s ahead.
	assert.InDelta(t, 5.2, AdjustedPosition(5.0, 1000, 1200), 1e-9)
}

func TestAdjustedPositionZeroDelay(t *testing.T) {
	assert.InDelta(t, 5.0, AdjustedPosition(5.0, 1000, 1000), 1e-9)
}

func TestAdjustedPositionClampsNegative(t *testing.T) {
	// A skewed receiver clock must not produce a negative seek target.
	assert.Equal(t, 0.0, AdjustedPosition(0.1, 2000, 1000))
}

func TestPlaybackAtAdvancesWhilePlaying(t *testing.T) {
	start := time.UnixMilli(10_000)
	ps := domain.PlaybackState{Position: 30, IsPlaying: true, LastUpdatedAt: start.UnixMilli()}

	got := PlaybackAt(ps, start.Add(2500*time.Millisecond))
	assert.InDelta(t, 32.5, got.Position, 1e-9)
	assert.True(t, got.IsPlaying)
	assert.Equal(t, start.Add(2500*time.Millisecond).UnixMilli(), got.LastUpdatedAt)
}

func TestPlaybackAtFrozenWhilePaused(t *testing.T) {
	ps := domain.PlaybackState{Position: 30, IsPlaying: false, LastUpdatedAt: 10_000}

	got := PlaybackAt(ps, time.UnixMilli(99_000))
	assert.Equal(t, ps, got)
}
