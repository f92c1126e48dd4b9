package core

import (
	"time"

	"github.com/keremar/watchroom/internal/domain"
)

// AdjustedPosition compensates a play position for one-way propagation
// delay: the video kept advancing between origination and receipt. The
// result never goes negative. Assumes negligible clock skew between
// participants.
func AdjustedPosition(position float64, originTS, localTS int64) float64 {
	adjusted := position + float64(localTS-originTS)/1000.0
	if adjusted < 0 {
		return 0
	}
	return adjusted
}

// PlaybackAt reads the playback clock at the given wall time. While
// playing, the position advances with elapsed time since the last update,
// so a late joiner sees where the room currently is rather than the
// sender's stale reading. Paused state reads as stored.
func PlaybackAt(ps domain.PlaybackState, now time.Time) domain.PlaybackState {
	if !ps.IsPlaying {
		return ps
	}
	nowMS := now.UnixMilli()
	ps.Position = AdjustedPosition(ps.Position, ps.LastUpdatedAt, nowMS)
	ps.LastUpdatedAt = nowMS
	return ps
}
