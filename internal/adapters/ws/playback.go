package ws

import (
	"encoding/json"

	"github.com/keremar/watchroom/internal/domain"
)

func (ctl *Controller) handleVideoControl(sid domain.ConnectionID, data []byte) {
	var p struct {
		Type      string  `json:"type"`
		Action    string  `json:"action"`
		Position  float64 `json:"currentTime"`
		Timestamp int64   `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sid, "bad_payload")
		return
	}
	ctl.Orch.SetPlayback(sid, p.Action, p.Position, p.Timestamp)
}

func (ctl *Controller) handleManualSync(sid domain.ConnectionID, data []byte) {
	var p struct {
		Type   string `json:"type"`
		Action string `json:"action"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sid, "bad_payload")
		return
	}
	ctl.Orch.ManualSync(sid, p.Action)
}
