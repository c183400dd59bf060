package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sneha822/chatshield-backend/internal/models"
	"github.com/sneha822/chatshield-backend/internal/moderation"
)

type fakeConn struct {
	userID   uuid.UUID
	username string
	roomID   string
	sent     []interface{}
}

func newFakeConn(username, roomID string) *fakeConn {
	return &fakeConn{userID: uuid.New(), username: username, roomID: roomID}
}

func (c *fakeConn) UserID() uuid.UUID      { return c.userID }
func (c *fakeConn) Username() string       { return c.username }
func (c *fakeConn) Room() string           { return c.roomID }
func (c *fakeConn) Send(event interface{}) { c.sent = append(c.sent, event) }

type broadcastRecord struct {
	roomID string
	event  interface{}
}

type fakeBroadcaster struct {
	broadcasts []broadcastRecord
	unicasts   []broadcastRecord
	users      []string
}

func (b *fakeBroadcaster) Broadcast(roomID string, event interface{}) {
	b.broadcasts = append(b.broadcasts, broadcastRecord{roomID: roomID, event: event})
}

func (b *fakeBroadcaster) SendToUser(roomID, username string, event interface{}) {
	b.unicasts = append(b.unicasts, broadcastRecord{roomID: roomID, event: event})
}

func (b *fakeBroadcaster) ListUsers(roomID string) []string { return b.users }

type fakeMembers struct {
	created map[string]bool
	err     error
}

func (m *fakeMembers) EnsureMember(userID uuid.UUID, username, roomID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.created == nil {
		m.created = make(map[string]bool)
	}
	k := username + "/" + roomID
	if m.created[k] {
		return false, nil
	}
	m.created[k] = true
	return true, nil
}

type fakeClassifier struct {
	toxic float64
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (*models.ToxicityScores, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.ToxicityScores{
		Toxicity: f.toxic,
		IsToxic:  f.toxic > 0.5,
		Level:    "moderate",
	}, nil
}

type fakeHistory struct {
	saved []*models.Message
	err   error
}

func (h *fakeHistory) Save(msg *models.Message) error {
	if h.err != nil {
		return h.err
	}
	h.saved = append(h.saved, msg)
	return nil
}

func newTestPipeline(clf *fakeClassifier, failClosed bool) (*Pipeline, *fakeBroadcaster, *moderation.Engine, *fakeHistory) {
	reg := &fakeBroadcaster{users: []string{"alice"}}
	engine := moderation.NewEngine(5, 5*time.Minute, nil, nil)
	hist := &fakeHistory{}
	p := NewPipeline(reg, engine, clf, &fakeMembers{}, hist, failClosed)
	return p, reg, engine, hist
}

func TestOnConnectSendsStatusAndAnnouncesOnce(t *testing.T) {
	p, reg, _, _ := newTestPipeline(&fakeClassifier{}, false)

	first := newFakeConn("alice", "general")
	p.OnConnect(first)

	if len(first.sent) != 1 {
		t.Fatalf("Expected 1 unicast event, got %d", len(first.sent))
	}
	status, ok := first.sent[0].(models.StatusEvent)
	if !ok {
		t.Fatalf("Expected StatusEvent, got %T", first.sent[0])
	}
	if status.Status.IsMuted {
		t.Error("Fresh user should not be muted")
	}
	if len(reg.broadcasts) != 1 {
		t.Fatalf("Expected 1 join broadcast, got %d", len(reg.broadcasts))
	}
	join, ok := reg.broadcasts[0].event.(models.PresenceEvent)
	if !ok {
		t.Fatalf("Expected PresenceEvent, got %T", reg.broadcasts[0].event)
	}
	if join.Type != models.EventJoin {
		t.Errorf("Expected %q event, got %q", models.EventJoin, join.Type)
	}

	// Reconnect: membership already exists, so no second announcement.
	second := newFakeConn("alice", "general")
	p.OnConnect(second)
	if len(reg.broadcasts) != 1 {
		t.Errorf("Reconnect should not re-announce join, got %d broadcasts", len(reg.broadcasts))
	}
	if len(second.sent) != 1 {
		t.Errorf("Reconnect should still receive a status event, got %d events", len(second.sent))
	}
}

func TestOnDisconnectAnnouncesOnlyLastConnection(t *testing.T) {
	p, reg, _, _ := newTestPipeline(&fakeClassifier{}, false)
	c := newFakeConn("alice", "general")

	p.OnDisconnect(c, false)
	if len(reg.broadcasts) != 0 {
		t.Fatalf("Non-last disconnect should be silent, got %d broadcasts", len(reg.broadcasts))
	}

	p.OnDisconnect(c, true)
	if len(reg.broadcasts) != 1 {
		t.Fatalf("Expected 1 leave broadcast, got %d", len(reg.broadcasts))
	}
	leave := reg.broadcasts[0].event.(models.PresenceEvent)
	if leave.Type != models.EventLeave {
		t.Errorf("Expected %q event, got %q", models.EventLeave, leave.Type)
	}
}

func TestCleanMessageBroadcastAndPersisted(t *testing.T) {
	p, reg, _, hist := newTestPipeline(&fakeClassifier{toxic: 0.1}, false)
	c := newFakeConn("alice", "general")

	p.OnMessage(c, "hello everyone")

	if len(c.sent) != 0 {
		t.Errorf("Clean message should unicast nothing, got %d events", len(c.sent))
	}
	if len(reg.broadcasts) != 1 {
		t.Fatalf("Expected 1 broadcast, got %d", len(reg.broadcasts))
	}
	chat := reg.broadcasts[0].event.(models.ChatEvent)
	if chat.Content != "hello everyone" || chat.Sender != "alice" {
		t.Errorf("Unexpected chat event: %+v", chat)
	}
	if chat.ToxicityScores == nil || chat.ToxicityScores.IsToxic {
		t.Error("Clean message should carry non-toxic scores")
	}
	if len(hist.saved) != 1 {
		t.Errorf("Expected message persisted, got %d", len(hist.saved))
	}
}

func TestToxicMessagesWarnThenMute(t *testing.T) {
	p, reg, _, _ := newTestPipeline(&fakeClassifier{toxic: 0.9}, false)
	c := newFakeConn("bob", "general")

	for i := 1; i <= 4; i++ {
		p.OnMessage(c, "you are terrible")
	}

	if len(c.sent) != 4 {
		t.Fatalf("Expected 4 warnings, got %d events", len(c.sent))
	}
	last := c.sent[3].(models.WarningEvent)
	if last.Status.ConsecutiveToxicCount != 4 {
		t.Errorf("Expected consecutive count 4, got %d", last.Status.ConsecutiveToxicCount)
	}
	if last.Status.WarningsUntilMute != 1 {
		t.Errorf("Expected 1 warning until mute, got %d", last.Status.WarningsUntilMute)
	}
	// Warned messages are still delivered to the room.
	if len(reg.broadcasts) != 4 {
		t.Fatalf("Expected 4 chat broadcasts, got %d", len(reg.broadcasts))
	}

	// Fifth toxic message triggers the mute.
	p.OnMessage(c, "you are terrible")
	muted, ok := c.sent[4].(models.MutedEvent)
	if !ok {
		t.Fatalf("Expected MutedEvent, got %T", c.sent[4])
	}
	if !muted.Status.IsMuted {
		t.Error("Status in mute event should be muted")
	}
	if muted.Status.RemainingSeconds == nil || *muted.Status.RemainingSeconds != 300 {
		t.Errorf("Expected 300 remaining seconds, got %v", muted.Status.RemainingSeconds)
	}

	var sawRoomMute, sawFinalChat bool
	for _, b := range reg.broadcasts[4:] {
		switch ev := b.event.(type) {
		case models.RoomMutedEvent:
			sawRoomMute = true
			if ev.Username != "bob" {
				t.Errorf("Room mute names %q, want bob", ev.Username)
			}
		case models.ChatEvent:
			sawFinalChat = true
		}
	}
	if !sawRoomMute {
		t.Error("Expected room-wide mute announcement")
	}
	if !sawFinalChat {
		t.Error("The mute-triggering message itself should still be delivered")
	}
}

func TestMutedSenderIsRejectedWithoutClassification(t *testing.T) {
	clf := &fakeClassifier{toxic: 0.9}
	p, reg, _, _ := newTestPipeline(clf, false)
	c := newFakeConn("bob", "general")

	for i := 0; i < 5; i++ {
		p.OnMessage(c, "toxic text")
	}
	callsAfterMute := clf.calls
	broadcastsAfterMute := len(reg.broadcasts)

	p.OnMessage(c, "let me speak")

	rejected, ok := c.sent[len(c.sent)-1].(models.MuteRejectedEvent)
	if !ok {
		t.Fatalf("Expected MuteRejectedEvent, got %T", c.sent[len(c.sent)-1])
	}
	if rejected.RemainingSeconds <= 0 || rejected.RemainingSeconds > 300 {
		t.Errorf("Unexpected remaining seconds: %d", rejected.RemainingSeconds)
	}
	if rejected.Status.WarningCount != 5 {
		t.Errorf("Rejection must not change warning count, got %d", rejected.Status.WarningCount)
	}
	if clf.calls != callsAfterMute {
		t.Error("Muted sender's message should not reach the classifier")
	}
	if len(reg.broadcasts) != broadcastsAfterMute {
		t.Error("Rejected message must not be broadcast")
	}
}

func TestInvalidMessagesRejected(t *testing.T) {
	clf := &fakeClassifier{}
	p, reg, _, _ := newTestPipeline(clf, false)
	c := newFakeConn("alice", "general")

	p.OnMessage(c, "   ")
	p.OnMessage(c, strings.Repeat("a", models.MaxMessageLength+1))

	if len(c.sent) != 2 {
		t.Fatalf("Expected 2 error events, got %d", len(c.sent))
	}
	for _, ev := range c.sent {
		if _, ok := ev.(models.ErrorEvent); !ok {
			t.Errorf("Expected ErrorEvent, got %T", ev)
		}
	}
	if clf.calls != 0 {
		t.Error("Invalid input should not be classified")
	}
	if len(reg.broadcasts) != 0 {
		t.Error("Invalid input should not be broadcast")
	}
}

func TestClassifierFailureFailOpen(t *testing.T) {
	p, reg, engine, _ := newTestPipeline(&fakeClassifier{err: errors.New("connection refused")}, false)
	c := newFakeConn("alice", "general")

	p.OnMessage(c, "hello")

	if len(reg.broadcasts) != 1 {
		t.Fatalf("Fail-open should deliver the message, got %d broadcasts", len(reg.broadcasts))
	}
	chat := reg.broadcasts[0].event.(models.ChatEvent)
	if chat.ToxicityScores != nil {
		t.Error("Unclassified message should carry no scores")
	}
	if got := engine.Status("alice", "general").ConsecutiveToxicCount; got != 0 {
		t.Errorf("Fail-open message counts as clean, got streak %d", got)
	}
}

func TestClassifierFailureFailClosed(t *testing.T) {
	p, reg, _, hist := newTestPipeline(&fakeClassifier{err: errors.New("timeout")}, true)
	c := newFakeConn("alice", "general")

	p.OnMessage(c, "hello")

	if len(reg.broadcasts) != 0 {
		t.Error("Fail-closed should drop the message")
	}
	if len(hist.saved) != 0 {
		t.Error("Dropped message should not be persisted")
	}
	if len(c.sent) != 1 {
		t.Fatalf("Expected 1 error event, got %d", len(c.sent))
	}
	if _, ok := c.sent[0].(models.ErrorEvent); !ok {
		t.Errorf("Expected ErrorEvent, got %T", c.sent[0])
	}
}

func TestCleanMessageResetsToxicStreak(t *testing.T) {
	clf := &fakeClassifier{toxic: 0.9}
	p, _, engine, _ := newTestPipeline(clf, false)
	c := newFakeConn("bob", "general")

	for i := 0; i < 4; i++ {
		p.OnMessage(c, "toxic text")
	}
	clf.toxic = 0.05
	p.OnMessage(c, "sorry about that")

	status := engine.Status("bob", "general")
	if status.ConsecutiveToxicCount != 0 {
		t.Errorf("Clean message should reset streak, got %d", status.ConsecutiveToxicCount)
	}
	if status.WarningCount != 4 {
		t.Errorf("Warning count should survive a clean message, got %d", status.WarningCount)
	}
}

func TestNotifyUnmutedReachesUserAndRoom(t *testing.T) {
	p, reg, _, _ := newTestPipeline(&fakeClassifier{}, false)

	p.NotifyUnmuted("bob", "general", models.MuteStatus{})

	if len(reg.unicasts) != 1 {
		t.Fatalf("Expected 1 unicast, got %d", len(reg.unicasts))
	}
	if _, ok := reg.unicasts[0].event.(models.UnmutedEvent); !ok {
		t.Errorf("Expected UnmutedEvent, got %T", reg.unicasts[0].event)
	}
	if len(reg.broadcasts) != 1 {
		t.Fatalf("Expected 1 broadcast, got %d", len(reg.broadcasts))
	}
	room, ok := reg.broadcasts[0].event.(models.RoomUnmutedEvent)
	if !ok {
		t.Fatalf("Expected RoomUnmutedEvent, got %T", reg.broadcasts[0].event)
	}
	if room.Username != "bob" {
		t.Errorf("Room unmute names %q, want bob", room.Username)
	}
}
