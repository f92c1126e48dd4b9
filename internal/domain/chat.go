package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxMessageLen caps a single chat message; longer input is dropped.
	MaxMessageLen = 500
	// ChatLogCap bounds the in-memory log; the oldest entry is evicted first.
	ChatLogCap = 1000
	// ChatHistoryCap limits how much history a new joiner receives.
	ChatHistoryCap = 100
)

// SystemAuthor is the author name used on system notices.
const SystemAuthor = "System"

type EntryKind string

const (
	EntryMessage  EntryKind = "message"
	EntryReaction EntryKind = "reaction"
	EntrySystem   EntryKind = "system"
)

// ChatEntry is one chat log record: a message, a reaction or a system notice.
// Immutable once appended.
type ChatEntry struct {
	ID        string    `json:"id"`
	Author    string    `json:"username"`
	Text      string    `json:"text,omitempty"`
	Emoji     string    `json:"emoji,omitempty"`
	Timestamp int64     `json:"timestamp"`
	Kind      EntryKind `json:"type"`
}

func NewMessage(author, text string, ts int64) ChatEntry {
	return ChatEntry{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		Timestamp: ts,
		Kind:      EntryMessage,
	}
}

func NewReaction(author, emoji string, ts int64) ChatEntry {
	return ChatEntry{
		ID:        uuid.NewString(),
		Author:    author,
		Emoji:     emoji,
		Timestamp: ts,
		Kind:      EntryReaction,
	}
}

func NewSystemNotice(text string, ts int64) ChatEntry {
	return ChatEntry{
		ID:        uuid.NewString(),
		Author:    SystemAuthor,
		Text:      text,
		Timestamp: ts,
		Kind:      EntrySystem,
	}
}

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeMessage trims, truncates to MaxMessageLen runes and strips
// markup-like angle-bracket sequences. The cut lands on a rune boundary
// so truncation never produces invalid UTF-8.
func SanitizeMessage(text string) string {
	t := strings.TrimSpace(text)
	if utf8.RuneCountInString(t) > MaxMessageLen {
		t = string([]rune(t)[:MaxMessageLen])
	}
	return markupPattern.ReplaceAllString(t, "")
}
