package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sneha822/chatshield-backend/internal/classifier"
	"github.com/sneha822/chatshield-backend/internal/models"
	"github.com/sneha822/chatshield-backend/internal/moderation"
)

// Pipeline orchestrates one inbound chat message end to end: mute check,
// classification, moderation transition, persistence and broadcast. It is
// the only component that talks to the classifier.
type Pipeline struct {
	registry   Broadcaster
	engine     *moderation.Engine
	classifier classifier.Classifier
	members    MembershipStore
	history    History
	failClosed bool
}

// NewPipeline creates the message pipeline. history may be nil (messages
// are not persisted); members may not be nil.
func NewPipeline(
	registry Broadcaster,
	engine *moderation.Engine,
	clf classifier.Classifier,
	members MembershipStore,
	history History,
	failClosed bool,
) *Pipeline {
	return &Pipeline{
		registry:   registry,
		engine:     engine,
		classifier: clf,
		members:    members,
		history:    history,
		failClosed: failClosed,
	}
}

// OnConnect runs once per new connection, before any message flows. The
// membership store's created flag is the sole trigger for the join
// announcement; reconnects never re-fire it.
func (p *Pipeline) OnConnect(c Conn) {
	created, err := p.members.EnsureMember(c.UserID(), c.Username(), c.Room())
	if err != nil {
		log.Printf("Failed to ensure membership for %s in %s: %v", c.Username(), c.Room(), err)
	}

	c.Send(models.StatusEvent{
		Type:      models.EventStatus,
		RoomID:    c.Room(),
		Timestamp: time.Now(),
		Status:    p.engine.Status(c.Username(), c.Room()),
	})

	if created {
		p.registry.Broadcast(c.Room(), models.PresenceEvent{
			Type:      models.EventJoin,
			Content:   fmt.Sprintf("%s has joined the chat", c.Username()),
			Sender:    models.SystemSender,
			RoomID:    c.Room(),
			Timestamp: time.Now(),
			Users:     p.registry.ListUsers(c.Room()),
		})
	}
}

// OnDisconnect announces a leave once the user's last connection is gone.
func (p *Pipeline) OnDisconnect(c Conn, lastConnection bool) {
	if !lastConnection {
		return
	}
	p.registry.Broadcast(c.Room(), models.PresenceEvent{
		Type:      models.EventLeave,
		Content:   fmt.Sprintf("%s has left the chat", c.Username()),
		Sender:    models.SystemSender,
		RoomID:    c.Room(),
		Timestamp: time.Now(),
		Users:     p.registry.ListUsers(c.Room()),
	})
}

// OnMessage processes one inbound chat message.
func (p *Pipeline) OnMessage(c Conn, content string) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > models.MaxMessageLength {
		c.Send(models.ErrorEvent{
			Type:      models.EventError,
			Content:   "Message must be between 1 and 4096 characters",
			Sender:    models.SystemSender,
			Timestamp: time.Now(),
		})
		return
	}

	username, roomID := c.Username(), c.Room()

	// Muted senders are rejected before classification; nothing mutates.
	status := p.engine.Status(username, roomID)
	if status.IsMuted {
		p.rejectMuted(c, status)
		return
	}

	scores := p.classify(c, content)
	if scores == nil && p.failClosed {
		return
	}

	if scores != nil && scores.IsToxic {
		out := p.engine.RecordToxic(username, roomID)
		switch out.Action {
		case moderation.ActionMuted:
			c.Send(models.MutedEvent{
				Type:      models.EventMuted,
				Content:   fmt.Sprintf("You have been muted for %d minutes after repeated toxic messages", out.Status.MuteDurationMinutes),
				RoomID:    roomID,
				Timestamp: time.Now(),
				Status:    out.Status,
			})
			if out.Status.MuteExpiresAt != nil {
				p.registry.Broadcast(roomID, models.RoomMutedEvent{
					Type:          models.EventMuted,
					Content:       fmt.Sprintf("%s has been muted for toxic behavior", username),
					Sender:        models.SystemSender,
					RoomID:        roomID,
					Timestamp:     time.Now(),
					Username:      username,
					MuteExpiresAt: *out.Status.MuteExpiresAt,
				})
			}
		case moderation.ActionWarned:
			c.Send(models.WarningEvent{
				Type:      models.EventWarning,
				Content:   fmt.Sprintf("Warning %d/%d: your message was flagged as toxic", out.Status.ConsecutiveToxicCount, out.Status.ToxicThreshold),
				RoomID:    roomID,
				Timestamp: time.Now(),
				Status:    out.Status,
			})
		case moderation.ActionRejected:
			// Lost the race against a concurrent mute; suppress.
			p.rejectMuted(c, out.Status)
			return
		}
	} else {
		p.engine.RecordClean(username, roomID)
	}

	msg := &models.Message{
		ID:             uuid.New(),
		RoomID:         roomID,
		SenderID:       c.UserID(),
		Sender:         username,
		Content:        content,
		ToxicityScores: scores,
		CreatedAt:      time.Now(),
	}
	if p.history != nil {
		if err := p.history.Save(msg); err != nil {
			// History is best-effort; the room still gets the message.
			log.Printf("Failed to persist message from %s in %s: %v", username, roomID, err)
		}
	}

	p.registry.Broadcast(roomID, models.ChatEvent{
		Type:           models.EventChat,
		Content:        content,
		Sender:         username,
		RoomID:         roomID,
		Timestamp:      msg.CreatedAt,
		ToxicityScores: scores,
	})
}

// NotifyUnmuted pushes the unmute transition out to the sender and the
// room. Wire it as the moderation engine's unmute callback.
func (p *Pipeline) NotifyUnmuted(username, roomID string, status models.MuteStatus) {
	p.registry.SendToUser(roomID, username, models.UnmutedEvent{
		Type:      models.EventUnmuted,
		Content:   "Your mute has expired. You can send messages again",
		RoomID:    roomID,
		Timestamp: time.Now(),
		Status:    status,
	})
	p.registry.Broadcast(roomID, models.RoomUnmutedEvent{
		Type:      models.EventUnmuted,
		Content:   fmt.Sprintf("%s has been unmuted", username),
		Sender:    models.SystemSender,
		RoomID:    roomID,
		Timestamp: time.Now(),
		Username:  username,
	})
}

func (p *Pipeline) rejectMuted(c Conn, status models.MuteStatus) {
	remaining := 0
	if status.RemainingSeconds != nil {
		remaining = *status.RemainingSeconds
	}
	c.Send(models.MuteRejectedEvent{
		Type:             models.EventMuteRejected,
		Content:          fmt.Sprintf("You are muted. Try again in %d seconds", remaining),
		RoomID:           c.Room(),
		Timestamp:        time.Now(),
		RemainingSeconds: remaining,
		Status:           status,
	})
}

// classify obtains the toxicity verdict. On classifier failure it either
// fails open (nil scores, message treated as clean) or, when failClosed is
// set, reports the error to the sender and returns nil.
func (p *Pipeline) classify(c Conn, content string) *models.ToxicityScores {
	scores, err := p.classifier.Classify(context.Background(), content)
	if err == nil {
		return scores
	}

	log.Printf("Classifier failure for message from %s in %s: %v", c.Username(), c.Room(), err)
	if p.failClosed {
		c.Send(models.ErrorEvent{
			Type:      models.EventError,
			Content:   "Message could not be checked, please try again",
			Sender:    models.SystemSender,
			Timestamp: time.Now(),
		})
	}
	return nil
}
