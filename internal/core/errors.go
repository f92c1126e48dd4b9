package core

import "errors"

// Command failures reported back to the originating connection only.
var (
	ErrNameTaken        = errors.New("display name already taken")
	ErrRoomFull         = errors.New("room is full")
	ErrInvalidURL       = errors.New("invalid video url")
	ErrMissingTarget    = errors.New("missing signaling target")
	ErrMalformedCommand = errors.New("malformed command")
	ErrHostOnly         = errors.New("playback is restricted to the host")
	ErrShuttingDown     = errors.New("server is shutting down")
)
