package core

import (
	"encoding/json"

	"github.com/keremar/watchroom/internal/domain"
)

// Event is one server-originated protocol message. Kind is the wire type token.
type Event interface {
	Kind() string
}

// Delivery scopes an event: to a single Target connection, or room-wide
// with an optional Exclude (the sender, usually).
type Delivery struct {
	Event   Event
	Target  domain.ConnectionID
	Exclude domain.ConnectionID
}

func toAll(e Event) Delivery                            { return Delivery{Event: e} }
func toOthers(e Event, from domain.ConnectionID) Delivery { return Delivery{Event: e, Exclude: from} }
func toOnly(e Event, target domain.ConnectionID) Delivery { return Delivery{Event: e, Target: target} }

// RoomStateEvent is the snapshot sent to a connection that just joined.
type RoomStateEvent struct {
	Users        []domain.Participant  `json:"users"`
	Playlist     []domain.PlaylistItem `json:"playlist"`
	CurrentVideo *domain.Video         `json:"currentVideo"`
	VideoState   domain.PlaybackState  `json:"videoState"`
	Messages     []domain.ChatEntry    `json:"messages"`
}

func (RoomStateEvent) Kind() string { return "room_state" }

type MemberJoinedEvent struct {
	User domain.Participant `json:"user"`
}

func (MemberJoinedEvent) Kind() string { return "member_joined" }

type MemberLeftEvent struct {
	ID          domain.ConnectionID `json:"id"`
	DisplayName string              `json:"username"`
}

func (MemberLeftEvent) Kind() string { return "member_left" }

type HostChangedEvent struct {
	NewHost domain.Participant `json:"newHost"`
}

func (HostChangedEvent) Kind() string { return "host_changed" }

type PlaybackSyncEvent struct {
	Action    string  `json:"action"`
	Position  float64 `json:"currentTime"`
	Timestamp int64   `json:"timestamp"`
	By        string  `json:"by"`
}

func (PlaybackSyncEvent) Kind() string { return "video_sync" }

type VideoChangedEvent struct {
	Video domain.Video `json:"video"`
}

func (VideoChangedEvent) Kind() string { return "video_changed" }

type PlaylistUpdatedEvent struct {
	Playlist []domain.PlaylistItem `json:"playlist"`
}

func (PlaylistUpdatedEvent) Kind() string { return "playlist_updated" }

type NewMessageEvent struct {
	Message domain.ChatEntry `json:"message"`
}

func (NewMessageEvent) Kind() string { return "new_message" }

type NewReactionEvent struct {
	Reaction domain.ChatEntry `json:"reaction"`
}

func (NewReactionEvent) Kind() string { return "new_reaction" }

type ManualSyncEvent struct {
	Action    string `json:"action"`
	By        string `json:"by"`
	Timestamp int64  `json:"timestamp"`
}

func (ManualSyncEvent) Kind() string { return "manual_sync" }

type ScreenShareStatusEvent struct {
	Status    string `json:"status"`
	By        string `json:"by"`
	Timestamp int64  `json:"timestamp"`
}

func (ScreenShareStatusEvent) Kind() string { return "screen_share_status" }

type UserStatusUpdatedEvent struct {
	ID          domain.ConnectionID `json:"userId"`
	DisplayName string              `json:"username"`
	IsReady     bool                `json:"isReady"`
	Status      string              `json:"status,omitempty"`
}

func (UserStatusUpdatedEvent) Kind() string { return "user_status_updated" }

type UserTypingEvent struct {
	DisplayName string `json:"username"`
	IsTyping    bool   `json:"isTyping"`
}

func (UserTypingEvent) Kind() string { return "user_typing" }

type RoomStatsEvent struct {
	RoomID          domain.RoomID `json:"roomId"`
	UserCount       int           `json:"userCount"`
	MessageCount    int           `json:"messageCount"`
	PlaylistCount   int           `json:"playlistCount"`
	HasCurrentVideo bool          `json:"hasCurrentVideo"`
	CreatedAt       int64         `json:"created"`
	Uptime          int64         `json:"uptime"`
	LastActivityAt  int64         `json:"lastActivity"`
}

func (RoomStatsEvent) Kind() string { return "room_stats" }

type HeartbeatAckEvent struct{}

func (HeartbeatAckEvent) Kind() string { return "heartbeat_ack" }

// SignalEvent relays a peer negotiation payload verbatim. The payload is
// opaque: the server never parses SDP or ICE candidate contents.
type SignalEvent struct {
	signalKind string
	Payload    json.RawMessage     `json:"payload"`
	From       domain.ConnectionID `json:"from"`
	FromName   string              `json:"fromUsername,omitempty"`
}

func NewSignalEvent(kind string, payload json.RawMessage, from domain.ConnectionID, fromName string) SignalEvent {
	return SignalEvent{signalKind: kind, Payload: payload, From: from, FromName: fromName}
}

func (e SignalEvent) Kind() string { return e.signalKind }

type ErrorNoticeEvent struct {
	Message string `json:"message"`
}

func (ErrorNoticeEvent) Kind() string { return "error" }

type ServerShutdownEvent struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func (ServerShutdownEvent) Kind() string { return "server_shutdown" }
