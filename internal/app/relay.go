package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/keremar/watchroom/internal/core"
	"github.com/keremar/watchroom/internal/domain"
)

// Signal kinds accepted by the relay.
const (
	SignalOffer        = "webrtc_offer"
	SignalAnswer       = "webrtc_answer"
	SignalICECandidate = "webrtc_ice_candidate"
)

// Relay forwards a peer negotiation payload verbatim to the target
// connection. It keeps no pairing state and never parses the payload:
// once negotiation completes, media flows peer to peer and the server is
// out of the path. A missing target or payload is the sender's error; a
// dead target is a silent no-op — peers handle negotiation failure with
// their own timeouts.
func (h *Hub) Relay(kind string, from, target domain.ConnectionID, payload json.RawMessage) error {
	if target == "" || len(payload) == 0 {
		return core.ErrMissingTarget
	}
	if !h.IsLive(target) {
		log.Debug().Str("module", "app.relay").Str("kind", kind).Str("from", string(from)).Str("target", string(target)).Msg("target gone, dropping signal")
		return nil
	}
	log.Debug().Str("module", "app.relay").Str("kind", kind).Str("from", string(from)).Str("target", string(target)).Msg("relaying signal")
	h.Send(target, core.NewSignalEvent(kind, payload, from, h.DisplayName(from)))
	return nil
}
