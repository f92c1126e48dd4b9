package ws

import (
	"encoding/json"

	"github.com/keremar/watchroom/internal/domain"
)

func (ctl *Controller) handleUserStatus(sid domain.ConnectionID, data []byte) {
	var p struct {
		Type    string `json:"type"`
		IsReady *bool  `json:"isReady"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sid, "bad_payload")
		return
	}
	ctl.Orch.UpdateStatus(sid, p.IsReady, p.Status)
}
