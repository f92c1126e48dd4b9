package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keremar/watchroom/internal/core"
	"github.com/keremar/watchroom/internal/domain"
)

func newTestOrchestrator() *Orchestrator {
	return &Orchestrator{
		Registry: core.NewRegistry(),
		Hub:      NewHub(),
	}
}

func connect(o *Orchestrator, id domain.ConnectionID) *fakeConn {
	c := &fakeConn{}
	o.Hub.Register(id, c)
	return c
}

func TestJoinCreatesRoomAndBinds(t *testing.T) {
	o := newTestOrchestrator()
	c1 := connect(o, "c1")

	o.Join("c1", "AB12CD34", "alice")

	room, ok := o.Registry.Lookup("AB12CD34")
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())
	assert.Equal(t, "alice", o.Hub.DisplayName("c1"))

	// Snapshot plus the join notice.
	assert.Equal(t, []string{"room_state", "new_message"}, c1.kinds(t))
}

func TestSecondJoinerSeesFirstInSnapshot(t *testing.T) {
	o := newTestOrchestrator()
	c1 := connect(o, "c1")
	c2 := connect(o, "c2")

	o.Join("c1", "AB12CD34", "alice")
	o.Join("c2", "AB12CD34", "bob")

	// alice gets bob's member_joined and the notice.
	assert.Equal(t, []string{"room_state", "new_message", "member_joined", "new_message"}, c1.kinds(t))

	// bob's snapshot lists both members.
	c2.mu.Lock()
	var snapshot struct {
		Type  string `json:"type"`
		Users []struct {
			Username string `json:"username"`
			IsHost   bool   `json:"isHost"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(c2.frames[0], &snapshot))
	c2.mu.Unlock()
	require.Equal(t, "room_state", snapshot.Type)
	require.Len(t, snapshot.Users, 2)
	assert.True(t, snapshot.Users[0].IsHost)
	assert.Equal(t, "alice", snapshot.Users[0].Username)
	assert.False(t, snapshot.Users[1].IsHost)
}

func TestJoinDuplicateNameGetsErrorOnly(t *testing.T) {
	o := newTestOrchestrator()
	connect(o, "c1")
	c2 := connect(o, "c2")

	o.Join("c1", "AB12CD34", "alice")
	o.Join("c2", "AB12CD34", "alice")

	assert.Equal(t, []string{"error"}, c2.kinds(t))
	assert.Equal(t, "", o.Hub.DisplayName("c2"))
	room, _ := o.Registry.Lookup("AB12CD34")
	assert.Equal(t, 1, room.MemberCount())
}

func TestJoinWhileDrainingRejected(t *testing.T) {
	o := newTestOrchestrator()
	c1 := connect(o, "c1")
	o.Hub.SetDraining()

	o.Join("c1", "AB12CD34", "alice")

	assert.Equal(t, []string{"error"}, c1.kinds(t))
	assert.Equal(t, 0, o.Registry.Count())
}

func TestJoinMissingFieldsRejected(t *testing.T) {
	o := newTestOrchestrator()
	c1 := connect(o, "c1")

	o.Join("c1", "", "alice")
	o.Join("c1", "AB12CD34", "")

	assert.Equal(t, []string{"error", "error"}, c1.kinds(t))
	assert.Equal(t, 0, o.Registry.Count())
}

func TestPlaybackSyncReachesOthersOnly(t *testing.T) {
	o := newTestOrchestrator()
	c1 := connect(o, "c1")
	c2 := connect(o, "c2")
	o.Join("c1", "AB12CD34", "alice")
	o.Join("c2", "AB12CD34", "bob")

	before := len(c1.frames)
	o.SetPlayback("c2", domain.ActionPlay, 5.0, 1000)

	assert.Equal(t, before+1, len(c1.frames))
	got := c1.lastFrame(t)
	assert.Equal(t, "video_sync", got["type"])
	assert.Equal(t, "play", got["action"])
	assert.Equal(t, 5.0, got["currentTime"])
	assert.Equal(t, "bob", got["by"])

	// The sender's own player is already there.
	for _, k := range c2.kinds(t) {
		assert.NotEqual(t, "video_sync", k)
	}
}

func TestDisconnectRunsLeaveOnce(t *testing.T) {
	o := newTestOrchestrator()
	connect(o, "c1")
	c2 := connect(o, "c2")
	o.Join("c1", "AB12CD34", "alice")
	o.Join("c2", "AB12CD34", "bob")

	before := len(c2.frames)
	// Read pump error path and cull path can both fire; only one Leave runs.
	o.Disconnect("c1")
	o.Disconnect("c1")

	room, _ := o.Registry.Lookup("AB12CD34")
	assert.Equal(t, 1, room.MemberCount())

	var leftEvents int
	for _, k := range c2.kinds(t)[before:] {
		if k == "member_left" {
			leftEvents++
		}
	}
	assert.Equal(t, 1, leftEvents)
}

func TestDisconnectHostPromotesNext(t *testing.T) {
	o := newTestOrchestrator()
	connect(o, "c1")
	c2 := connect(o, "c2")
	o.Join("c1", "AB12CD34", "alice")
	o.Join("c2", "AB12CD34", "bob")

	o.Disconnect("c1")

	kinds := c2.kinds(t)
	assert.Contains(t, kinds, "member_left")
	assert.Contains(t, kinds, "host_changed")

	room, _ := o.Registry.Lookup("AB12CD34")
	members := room.Members()
	require.Len(t, members, 1)
	assert.True(t, members[0].IsHost)
	assert.Equal(t, "bob", members[0].DisplayName)
}

func TestCommandFromUnboundConnectionDropped(t *testing.T) {
	o := newTestOrchestrator()
	c1 := connect(o, "c1")

	o.PostMessage("c1", "hello")
	assert.Empty(t, c1.frames)
}

func TestCommandErrorGoesToSenderOnly(t *testing.T) {
	o := newTestOrchestrator()
	c1 := connect(o, "c1")
	c2 := connect(o, "c2")
	o.Join("c1", "AB12CD34", "alice")
	o.Join("c2", "AB12CD34", "bob")

	before := len(c1.frames)
	o.ChangeVideo("c2", "", "Demo")

	assert.Len(t, c1.frames, before)
	got := c2.lastFrame(t)
	assert.Equal(t, "error", got["type"])
	assert.Equal(t, core.ErrInvalidURL.Error(), got["message"])
}

func TestHeartbeatAck(t *testing.T) {
	o := newTestOrchestrator()
	c1 := connect(o, "c1")

	o.Heartbeat("c1")
	assert.Equal(t, []string{"heartbeat_ack"}, c1.kinds(t))
}

func TestSignalRoutedBetweenPeers(t *testing.T) {
	o := newTestOrchestrator()
	connect(o, "c1")
	c2 := connect(o, "c2")
	o.Join("c1", "AB12CD34", "alice")
	o.Join("c2", "AB12CD34", "bob")

	before := len(c2.frames)
	o.Signal(SignalOffer, "c1", "c2", json.RawMessage(`{"sdp":"v=0"}`))

	require.Len(t, c2.frames, before+1)
	got := c2.lastFrame(t)
	assert.Equal(t, "webrtc_offer", got["type"])
	assert.Equal(t, "alice", got["fromUsername"])
}

func TestSignalMissingTargetReportsError(t *testing.T) {
	o := newTestOrchestrator()
	c1 := connect(o, "c1")
	o.Join("c1", "AB12CD34", "alice")

	o.Signal(SignalOffer, "c1", "", json.RawMessage(`{"sdp":"v=0"}`))

	got := c1.lastFrame(t)
	assert.Equal(t, "error", got["type"])
	assert.Equal(t, core.ErrMissingTarget.Error(), got["message"])
}

func TestChatFlowEndToEnd(t *testing.T) {
	o := newTestOrchestrator()
	c1 := connect(o, "c1")
	c2 := connect(o, "c2")
	o.Join("c1", "AB12CD34", "alice")
	o.Join("c2", "AB12CD34", "bob")

	o.PostMessage("c1", "hi <script>alert(1)</script> there")

	for _, c := range []*fakeConn{c1, c2} {
		got := c.lastFrame(t)
		require.Equal(t, "new_message", got["type"])
		msg := got["message"].(map[string]any)
		assert.Equal(t, "alice", msg["username"])
		assert.Equal(t, "hi alert(1) there", msg["text"])
	}
}
