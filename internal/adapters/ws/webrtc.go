package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/keremar/watchroom/internal/domain"
)

// handleSignal forwards offer/answer/candidate payloads through the
// relay. The payload stays opaque end to end.
func (ctl *Controller) handleSignal(sid domain.ConnectionID, kind string, data []byte) {
	var p struct {
		Type    string          `json:"type"`
		Target  string          `json:"target"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Str("kind", kind).Msg("bad signal payload")
		ctl.sendError(sid, "bad_payload")
		return
	}
	ctl.Orch.Signal(kind, sid, domain.ConnectionID(p.Target), p.Payload)
}
