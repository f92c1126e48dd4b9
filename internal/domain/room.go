package domain

type RoomID string

// Settings are per-room knobs. Only MaxMembers is enforced today.
type Settings struct {
	MaxMembers  int  `json:"maxUsers"`
	AllowGuests bool `json:"allowGuests"`
}

const DefaultMaxMembers = 50

func DefaultSettings() Settings {
	return Settings{MaxMembers: DefaultMaxMembers, AllowGuests: true}
}

// Video is the currently shared video. Replaced wholesale, never patched.
type Video struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	AddedBy   string `json:"by"`
	Timestamp int64  `json:"timestamp"`
}

// PlaybackState is the room's canonical playback clock.
// Position is in seconds, LastUpdatedAt in unix milliseconds.
type PlaybackState struct {
	Position      float64 `json:"currentTime"`
	IsPlaying     bool    `json:"isPlaying"`
	LastUpdatedAt int64   `json:"lastUpdate"`
}

// Playback actions accepted over the wire.
const (
	ActionPlay  = "play"
	ActionPause = "pause"
	ActionSeek  = "seek"
)
