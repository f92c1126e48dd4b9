package core

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/keremar/watchroom/internal/domain"
)

// Room is the authoritative state machine for one watch session. Every
// command runs under the room mutex, so commands targeting the same room
// never interleave; the mutex is the single-writer guarantee. Command
// handlers mutate state and return the deliveries to fan out — they never
// touch transport resources themselves.
type Room struct {
	mu sync.Mutex

	id           domain.RoomID
	createdAt    time.Time
	lastActivity time.Time
	members      []*domain.Participant
	currentVideo *domain.Video
	playback     domain.PlaybackState
	playlist     []domain.PlaylistItem
	chatLog      []domain.ChatEntry
	settings     domain.Settings

	restrictPlayback bool
	now              func() time.Time
}

// RoomOption tweaks room construction. Used by the registry and tests.
type RoomOption func(*Room)

func WithSettings(s domain.Settings) RoomOption {
	return func(r *Room) { r.settings = s }
}

func WithHostOnlyPlayback(on bool) RoomOption {
	return func(r *Room) { r.restrictPlayback = on }
}

func WithClock(now func() time.Time) RoomOption {
	return func(r *Room) { r.now = now }
}

func NewRoom(id domain.RoomID, opts ...RoomOption) *Room {
	r := &Room{
		id:       id,
		settings: domain.DefaultSettings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.createdAt = r.now()
	r.lastActivity = r.createdAt
	return r
}

func (r *Room) ID() domain.RoomID { return r.id }

func (r *Room) touch() { r.lastActivity = r.now() }

func (r *Room) memberByID(id domain.ConnectionID) *domain.Participant {
	for _, m := range r.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Join admits a new participant. The first joiner becomes host. The joiner
// gets the room snapshot; everyone else gets a MemberJoined event; the
// whole room gets a system notice.
func (r *Room) Join(id domain.ConnectionID, displayName string) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.DisplayName == displayName {
			return nil, ErrNameTaken
		}
	}
	if len(r.members) >= r.settings.MaxMembers {
		return nil, ErrRoomFull
	}

	now := r.now()
	p, err := domain.NewParticipant(id, displayName, len(r.members) == 0, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedCommand, err)
	}
	r.members = append(r.members, p)
	r.touch()

	notice := r.appendEntry(domain.NewSystemNotice(displayName+" joined the room", now.UnixMilli()))
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("name", displayName).Int("members", len(r.members)).Msg("member joined")

	return []Delivery{
		toOnly(r.snapshotLocked(now), id),
		toOthers(MemberJoinedEvent{User: *p}, id),
		toAll(NewMessageEvent{Message: notice}),
	}, nil
}

// Leave removes the participant bound to the connection. Host authority
// passes to the first remaining member. Removing an unknown connection is
// a no-op so duplicate teardown signals are harmless.
func (r *Room) Leave(id domain.ConnectionID) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, m := range r.members {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	removed := r.members[idx]
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	r.touch()
	now := r.now().UnixMilli()

	deliveries := []Delivery{
		toOthers(MemberLeftEvent{ID: removed.ID, DisplayName: removed.DisplayName}, id),
	}
	notice := r.appendEntry(domain.NewSystemNotice(removed.DisplayName+" left the room", now))
	deliveries = append(deliveries, toAll(NewMessageEvent{Message: notice}))

	if removed.IsHost && len(r.members) > 0 {
		newHost := r.members[0]
		newHost.IsHost = true
		hostNotice := r.appendEntry(domain.NewSystemNotice(newHost.DisplayName+" is the new host", now))
		deliveries = append(deliveries,
			toAll(HostChangedEvent{NewHost: *newHost}),
			toAll(NewMessageEvent{Message: hostNotice}),
		)
		log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("name", newHost.DisplayName).Msg("host changed")
	}

	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("name", removed.DisplayName).Int("members", len(r.members)).Msg("member left")
	return deliveries
}

// SetPlayback applies a play/pause/seek command and syncs everyone else.
// Any member may drive playback unless host-only mode is configured.
func (r *Room) SetPlayback(id domain.ConnectionID, action string, position float64, originTS int64) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender := r.memberByID(id)
	if sender == nil {
		return nil, nil
	}
	switch action {
	case domain.ActionPlay, domain.ActionPause, domain.ActionSeek:
	default:
		return nil, ErrMalformedCommand
	}
	if r.restrictPlayback && !sender.IsHost {
		return nil, ErrHostOnly
	}

	if position < 0 {
		position = 0
	}
	if originTS <= 0 {
		originTS = r.now().UnixMilli()
	}
	r.playback = domain.PlaybackState{
		Position:      position,
		IsPlaying:     action == domain.ActionPlay,
		LastUpdatedAt: originTS,
	}
	r.touch()

	return []Delivery{
		toOthers(PlaybackSyncEvent{
			Action:    action,
			Position:  r.playback.Position,
			Timestamp: r.playback.LastUpdatedAt,
			By:        sender.DisplayName,
		}, id),
	}, nil
}

// ChangeVideo replaces the current video and resets the playback clock.
func (r *Room) ChangeVideo(id domain.ConnectionID, url, title string) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender := r.memberByID(id)
	if sender == nil {
		return nil, nil
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrInvalidURL
	}
	if title == "" {
		title = "Video"
	}

	now := r.now().UnixMilli()
	video := domain.Video{URL: url, Title: title, AddedBy: sender.DisplayName, Timestamp: now}
	r.currentVideo = &video
	r.playback = domain.PlaybackState{LastUpdatedAt: now}
	r.touch()

	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("url", url).Str("by", sender.DisplayName).Msg("video changed")
	return []Delivery{toAll(VideoChangedEvent{Video: video})}, nil
}

// AddToPlaylist appends and rebroadcasts the full playlist. Empty urls are
// silently ignored.
func (r *Room) AddToPlaylist(id domain.ConnectionID, url, title string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender := r.memberByID(id)
	if sender == nil {
		return nil
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}

	item := domain.NewPlaylistItem(url, title, sender.DisplayName, r.now().UnixMilli())
	r.playlist = append(r.playlist, item)
	r.touch()

	return []Delivery{toAll(PlaylistUpdatedEvent{Playlist: r.playlistLocked()})}
}

// RemoveFromPlaylist removes by item id. An unknown id is a silent no-op:
// no state change, no broadcast.
func (r *Room) RemoveFromPlaylist(id domain.ConnectionID, itemID string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.memberByID(id) == nil {
		return nil
	}
	for i, item := range r.playlist {
		if item.ID == itemID {
			r.playlist = append(r.playlist[:i], r.playlist[i+1:]...)
			r.touch()
			return []Delivery{toAll(PlaylistUpdatedEvent{Playlist: r.playlistLocked()})}
		}
	}
	return nil
}

// PostMessage appends a chat message. Empty or oversized input is dropped
// without an error, matching the best-effort chat UX.
func (r *Room) PostMessage(id domain.ConnectionID, text string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender := r.memberByID(id)
	if sender == nil {
		return nil
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > domain.MaxMessageLen {
		return nil
	}

	msg := r.appendEntry(domain.NewMessage(sender.DisplayName, domain.SanitizeMessage(text), r.now().UnixMilli()))
	r.touch()
	return []Delivery{toAll(NewMessageEvent{Message: msg})}
}

// PostReaction appends a reaction entry. Emoji content is not validated.
func (r *Room) PostReaction(id domain.ConnectionID, emoji string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender := r.memberByID(id)
	if sender == nil || emoji == "" {
		return nil
	}

	reaction := r.appendEntry(domain.NewReaction(sender.DisplayName, emoji, r.now().UnixMilli()))
	r.touch()
	return []Delivery{toAll(NewReactionEvent{Reaction: reaction})}
}

// ManualSync relays a one-shot sync nudge to everyone else.
func (r *Room) ManualSync(id domain.ConnectionID, action string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender := r.memberByID(id)
	if sender == nil {
		return nil
	}
	r.touch()
	return []Delivery{
		toOthers(ManualSyncEvent{Action: action, By: sender.DisplayName, Timestamp: r.now().UnixMilli()}, id),
	}
}

// ScreenShare announces a started/stopped screen share and logs a system
// notice.
func (r *Room) ScreenShare(id domain.ConnectionID, started bool) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender := r.memberByID(id)
	if sender == nil {
		return nil
	}
	status, verb := "started", "started"
	if !started {
		status, verb = "stopped", "stopped"
	}
	now := r.now().UnixMilli()
	r.touch()

	notice := r.appendEntry(domain.NewSystemNotice(sender.DisplayName+" "+verb+" screen sharing", now))
	return []Delivery{
		toOthers(ScreenShareStatusEvent{Status: status, By: sender.DisplayName, Timestamp: now}, id),
		toAll(NewMessageEvent{Message: notice}),
	}
}

// UpdateStatus patches the sender's ready flag and/or free-form status.
func (r *Room) UpdateStatus(id domain.ConnectionID, isReady *bool, status string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender := r.memberByID(id)
	if sender == nil {
		return nil
	}
	if isReady != nil {
		sender.IsReady = *isReady
	}
	if status != "" {
		sender.Status = status
	}
	r.touch()

	return []Delivery{
		toAll(UserStatusUpdatedEvent{
			ID:          sender.ID,
			DisplayName: sender.DisplayName,
			IsReady:     sender.IsReady,
			Status:      sender.Status,
		}),
	}
}

// Typing relays a typing indicator. Deliberately does not count as room
// activity.
func (r *Room) Typing(id domain.ConnectionID, isTyping bool) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender := r.memberByID(id)
	if sender == nil {
		return nil
	}
	return []Delivery{
		toOthers(UserTypingEvent{DisplayName: sender.DisplayName, IsTyping: isTyping}, id),
	}
}

// Stats replies to the sender with room counters.
func (r *Room) Stats(id domain.ConnectionID) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.memberByID(id) == nil {
		return nil
	}
	now := r.now()
	return []Delivery{
		toOnly(RoomStatsEvent{
			RoomID:          r.id,
			UserCount:       len(r.members),
			MessageCount:    len(r.chatLog),
			PlaylistCount:   len(r.playlist),
			HasCurrentVideo: r.currentVideo != nil,
			CreatedAt:       r.createdAt.UnixMilli(),
			Uptime:          now.Sub(r.createdAt).Milliseconds(),
			LastActivityAt:  r.lastActivity.UnixMilli(),
		}, id),
	}
}

// appendEntry appends to the bounded chat log, evicting oldest-first.
func (r *Room) appendEntry(e domain.ChatEntry) domain.ChatEntry {
	r.chatLog = append(r.chatLog, e)
	if len(r.chatLog) > domain.ChatLogCap {
		r.chatLog = r.chatLog[len(r.chatLog)-domain.ChatLogCap:]
	}
	return e
}

func (r *Room) playlistLocked() []domain.PlaylistItem {
	out := make([]domain.PlaylistItem, len(r.playlist))
	copy(out, r.playlist)
	return out
}

func (r *Room) snapshotLocked(now time.Time) RoomStateEvent {
	users := make([]domain.Participant, len(r.members))
	for i, m := range r.members {
		users[i] = *m
	}
	history := r.chatLog
	if len(history) > domain.ChatHistoryCap {
		history = history[len(history)-domain.ChatHistoryCap:]
	}
	messages := make([]domain.ChatEntry, len(history))
	copy(messages, history)

	var video *domain.Video
	if r.currentVideo != nil {
		v := *r.currentVideo
		video = &v
	}
	return RoomStateEvent{
		Users:        users,
		Playlist:     r.playlistLocked(),
		CurrentVideo: video,
		VideoState:   PlaybackAt(r.playback, now),
		Messages:     messages,
	}
}

// MemberCount reports current membership without exposing internals.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Members returns a copy of the membership in join order.
func (r *Room) Members() []domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Participant, len(r.members))
	for i, m := range r.members {
		out[i] = *m
	}
	return out
}

// Playback reads the canonical playback clock at the current wall time.
func (r *Room) Playback() domain.PlaybackState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return PlaybackAt(r.playback, r.now())
}

// RoomInfo is the read-only view served by the lookup endpoint.
type RoomInfo struct {
	ID             domain.RoomID `json:"id"`
	UserCount      int           `json:"userCount"`
	CurrentVideo   *domain.Video `json:"currentVideo"`
	CreatedAt      int64         `json:"created"`
	LastActivityAt int64         `json:"lastActivity"`
}

func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	var video *domain.Video
	if r.currentVideo != nil {
		v := *r.currentVideo
		video = &v
	}
	return RoomInfo{
		ID:             r.id,
		UserCount:      len(r.members),
		CurrentVideo:   video,
		CreatedAt:      r.createdAt.UnixMilli(),
		LastActivityAt: r.lastActivity.UnixMilli(),
	}
}

// markActive refreshes lastActivity from outside a command. The registry
// calls it under its own lock when resolving a room for a join.
func (r *Room) markActive() {
	r.mu.Lock()
	r.lastActivity = r.now()
	r.mu.Unlock()
}

// idleEmptySince reports whether the room has been empty with no activity
// since before the cutoff. Used by the registry sweep.
func (r *Room) idleEmptySince(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0 && r.lastActivity.Before(cutoff)
}
