package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/keremar/watchroom/internal/domain"
)

func (ctl *Controller) handleJoin(sid domain.ConnectionID, data []byte) {
	var p struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Msg("bad join payload")
		ctl.sendError(sid, "bad_payload")
		return
	}
	log.Info().Str("module", "adapters.ws").Str("conn", string(sid)).Str("room", p.RoomID).Str("name", p.Username).Msg("join")
	ctl.Orch.Join(sid, domain.RoomID(p.RoomID), p.Username)
}

func (ctl *Controller) handleChangeVideo(sid domain.ConnectionID, data []byte) {
	var p struct {
		Type  string `json:"type"`
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sid, "bad_payload")
		return
	}
	ctl.Orch.ChangeVideo(sid, p.URL, p.Title)
}

func (ctl *Controller) handleAddToPlaylist(sid domain.ConnectionID, data []byte) {
	var p struct {
		Type  string `json:"type"`
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sid, "bad_payload")
		return
	}
	ctl.Orch.AddToPlaylist(sid, p.URL, p.Title)
}

func (ctl *Controller) handleRemoveFromPlaylist(sid domain.ConnectionID, data []byte) {
	var p struct {
		Type   string `json:"type"`
		ItemID string `json:"itemId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sid, "bad_payload")
		return
	}
	ctl.Orch.RemoveFromPlaylist(sid, p.ItemID)
}
