package domain

import "github.com/google/uuid"

// PlaylistItem is one queued video. Order is append order.
type PlaylistItem struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	AddedBy string `json:"addedBy"`
	AddedAt int64  `json:"addedAt"`
}

func NewPlaylistItem(url, title, addedBy string, addedAt int64) PlaylistItem {
	if title == "" {
		title = "Untitled Video"
	}
	return PlaylistItem{
		ID:      uuid.NewString(),
		URL:     url,
		Title:   title,
		AddedBy: addedBy,
		AddedAt: addedAt,
	}
}
