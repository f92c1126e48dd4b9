package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/keremar/watchroom/internal/core"
	"github.com/keremar/watchroom/internal/domain"
	"github.com/keremar/watchroom/internal/metrics"
)

// Orchestrator routes inbound commands from connections to their bound
// room and fans the resulting events back out through the hub. Failures
// from a participant's own command go back to that connection only; a
// panic inside a handler is contained here and never takes the room down.
type Orchestrator struct {
	Registry *core.Registry
	Hub      *Hub
	Metrics  *metrics.Metrics
}

// Join admits the connection into the room (creating it when unknown) and
// binds the connection on success.
func (o *Orchestrator) Join(connID domain.ConnectionID, roomID domain.RoomID, displayName string) {
	defer o.recoverCommand(connID, "join")
	o.countCommand("join")

	if o.Hub.Draining() {
		o.Hub.Send(connID, core.ErrorNoticeEvent{Message: core.ErrShuttingDown.Error()})
		return
	}
	if roomID == "" || displayName == "" {
		o.Hub.Send(connID, core.ErrorNoticeEvent{Message: "room id and display name are required"})
		return
	}

	room := o.Registry.GetOrCreate(roomID)
	deliveries, err := room.Join(connID, displayName)
	if err != nil {
		o.Hub.Send(connID, core.ErrorNoticeEvent{Message: err.Error()})
		return
	}
	o.Hub.Bind(connID, room.ID(), displayName)
	o.fanOut(room.ID(), deliveries)
}

// Disconnect tears down the connection's membership. Idempotent: the hub
// hands the room binding to the first caller only.
func (o *Orchestrator) Disconnect(connID domain.ConnectionID) {
	defer o.recoverCommand(connID, "disconnect")

	roomID, bound := o.Hub.Unregister(connID)
	if !bound {
		return
	}
	room, ok := o.Registry.Lookup(roomID)
	if !ok {
		return
	}
	o.fanOut(roomID, room.Leave(connID))
}

func (o *Orchestrator) SetPlayback(connID domain.ConnectionID, action string, position float64, originTS int64) {
	o.command(connID, "video_control", func(room *core.Room) ([]core.Delivery, error) {
		return room.SetPlayback(connID, action, position, originTS)
	})
}

func (o *Orchestrator) ChangeVideo(connID domain.ConnectionID, url, title string) {
	o.command(connID, "change_video", func(room *core.Room) ([]core.Delivery, error) {
		return room.ChangeVideo(connID, url, title)
	})
}

func (o *Orchestrator) AddToPlaylist(connID domain.ConnectionID, url, title string) {
	o.command(connID, "add_to_playlist", func(room *core.Room) ([]core.Delivery, error) {
		return room.AddToPlaylist(connID, url, title), nil
	})
}

func (o *Orchestrator) RemoveFromPlaylist(connID domain.ConnectionID, itemID string) {
	o.command(connID, "remove_from_playlist", func(room *core.Room) ([]core.Delivery, error) {
		return room.RemoveFromPlaylist(connID, itemID), nil
	})
}

func (o *Orchestrator) PostMessage(connID domain.ConnectionID, text string) {
	o.command(connID, "send_message", func(room *core.Room) ([]core.Delivery, error) {
		return room.PostMessage(connID, text), nil
	})
}

func (o *Orchestrator) PostReaction(connID domain.ConnectionID, emoji string) {
	o.command(connID, "send_reaction", func(room *core.Room) ([]core.Delivery, error) {
		return room.PostReaction(connID, emoji), nil
	})
}

func (o *Orchestrator) ManualSync(connID domain.ConnectionID, action string) {
	o.command(connID, "manual_sync", func(room *core.Room) ([]core.Delivery, error) {
		return room.ManualSync(connID, action), nil
	})
}

func (o *Orchestrator) ScreenShare(connID domain.ConnectionID, started bool) {
	o.command(connID, "screen_share", func(room *core.Room) ([]core.Delivery, error) {
		return room.ScreenShare(connID, started), nil
	})
}

func (o *Orchestrator) UpdateStatus(connID domain.ConnectionID, isReady *bool, status string) {
	o.command(connID, "user_status", func(room *core.Room) ([]core.Delivery, error) {
		return room.UpdateStatus(connID, isReady, status), nil
	})
}

func (o *Orchestrator) Typing(connID domain.ConnectionID, isTyping bool) {
	o.command(connID, "typing", func(room *core.Room) ([]core.Delivery, error) {
		return room.Typing(connID, isTyping), nil
	})
}

func (o *Orchestrator) RoomStats(connID domain.ConnectionID) {
	o.command(connID, "room_stats", func(room *core.Room) ([]core.Delivery, error) {
		return room.Stats(connID), nil
	})
}

// Heartbeat acknowledges liveness; it is not a room command.
func (o *Orchestrator) Heartbeat(connID domain.ConnectionID) {
	o.Hub.Touch(connID)
	o.Hub.Send(connID, core.HeartbeatAckEvent{})
}

// Signal relays a negotiation payload between two connections.
func (o *Orchestrator) Signal(kind string, connID domain.ConnectionID, target domain.ConnectionID, payload json.RawMessage) {
	defer o.recoverCommand(connID, kind)
	o.countCommand(kind)

	if err := o.Hub.Relay(kind, connID, target, payload); err != nil {
		o.Hub.Send(connID, core.ErrorNoticeEvent{Message: err.Error()})
	}
}

// command resolves the connection's room, runs the handler and fans out.
// Commands from connections not bound to any room are dropped.
func (o *Orchestrator) command(connID domain.ConnectionID, kind string, fn func(*core.Room) ([]core.Delivery, error)) {
	defer o.recoverCommand(connID, kind)
	o.countCommand(kind)
	o.Hub.Touch(connID)

	room, ok := o.roomOf(connID)
	if !ok {
		return
	}
	deliveries, err := fn(room)
	if err != nil {
		o.Hub.Send(connID, core.ErrorNoticeEvent{Message: err.Error()})
		return
	}
	o.fanOut(room.ID(), deliveries)
}

func (o *Orchestrator) roomOf(connID domain.ConnectionID) (*core.Room, bool) {
	o.Hub.mu.RLock()
	b, ok := o.Hub.conns[connID]
	var roomID domain.RoomID
	if ok {
		roomID = b.roomID
	}
	o.Hub.mu.RUnlock()
	if !ok || roomID == "" {
		return nil, false
	}
	return o.Registry.Lookup(roomID)
}

func (o *Orchestrator) fanOut(roomID domain.RoomID, deliveries []core.Delivery) {
	for _, d := range deliveries {
		o.Hub.Deliver(roomID, d)
	}
}

func (o *Orchestrator) countCommand(kind string) {
	if o.Metrics != nil {
		o.Metrics.IncCommands(kind)
	}
}

// recoverCommand is the dispatch boundary: an unexpected panic while
// processing one command is logged and reported to the originating
// connection only.
func (o *Orchestrator) recoverCommand(connID domain.ConnectionID, kind string) {
	if rec := recover(); rec != nil {
		log.Error().Str("module", "app.orchestrator").Str("conn", string(connID)).Str("command", kind).Interface("panic", rec).Msg("command handler panicked")
		o.Hub.Send(connID, core.ErrorNoticeEvent{Message: "internal error processing command"})
	}
}
