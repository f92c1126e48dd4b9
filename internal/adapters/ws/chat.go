package ws

import (
	"encoding/json"

	"github.com/keremar/watchroom/internal/domain"
)

func (ctl *Controller) handleSendMessage(sid domain.ConnectionID, data []byte) {
	var p struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sid, "bad_payload")
		return
	}
	ctl.Orch.PostMessage(sid, p.Text)
}

func (ctl *Controller) handleSendReaction(sid domain.ConnectionID, data []byte) {
	var p struct {
		Type  string `json:"type"`
		Emoji string `json:"emoji"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sid, "bad_payload")
		return
	}
	ctl.Orch.PostReaction(sid, p.Emoji)
}
