package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/keremar/watchroom/internal/core"
	"github.com/keremar/watchroom/internal/domain"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, sid domain.ConnectionID, c *wsConn) {
	pingPeriod := ctl.Cfg.PingPeriod
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "adapters.ws").Str("conn", string(sid)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "adapters.ws").Str("conn", string(sid)).Msg("writePump channel closed")
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "adapters.ws").Str("conn", string(sid)).Msg("ping failed")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid domain.ConnectionID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("conn", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		c.Close()
	}()

	// Pongs refresh the read deadline; a peer silent past pongWait is dead.
	pongWait := ctl.Cfg.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		ctl.Orch.Hub.Touch(sid)
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "adapters.ws").Str("conn", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "adapters.ws").Str("conn", string(sid)).Msg("readPump read error")
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
			ctl.dispatch(sid, data)
		}
	}
}

func (ctl *Controller) dispatch(sid domain.ConnectionID, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Str("conn", string(sid)).Msg("bad json envelope")
		ctl.sendError(sid, "bad_payload")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(sid, data)
	case "video_control":
		ctl.handleVideoControl(sid, data)
	case "change_video":
		ctl.handleChangeVideo(sid, data)
	case "add_to_playlist":
		ctl.handleAddToPlaylist(sid, data)
	case "remove_from_playlist":
		ctl.handleRemoveFromPlaylist(sid, data)
	case "send_message":
		ctl.handleSendMessage(sid, data)
	case "send_reaction":
		ctl.handleSendReaction(sid, data)
	case "manual_sync":
		ctl.handleManualSync(sid, data)
	case "webrtc_offer", "webrtc_answer", "webrtc_ice_candidate":
		ctl.handleSignal(sid, env.Type, data)
	case "screen_share_started":
		ctl.Orch.ScreenShare(sid, true)
	case "screen_share_stopped":
		ctl.Orch.ScreenShare(sid, false)
	case "user_status":
		ctl.handleUserStatus(sid, data)
	case "typing_start":
		ctl.Orch.Typing(sid, true)
	case "typing_stop":
		ctl.Orch.Typing(sid, false)
	case "room_stats":
		ctl.Orch.RoomStats(sid)
	case "heartbeat":
		ctl.Orch.Heartbeat(sid)
	default:
		log.Warn().Str("module", "adapters.ws").Str("type", env.Type).Msg("unknown command")
	}
}

func (ctl *Controller) sendError(sid domain.ConnectionID, msg string) {
	ctl.Orch.Hub.Send(sid, core.ErrorNoticeEvent{Message: msg})
}
