package moderation

import (
	"log"
	"sync"
	"time"

	"github.com/sneha822/chatshield-backend/internal/models"
)

// Action is the outcome of feeding one classified message into the engine.
type Action string

const (
	// ActionWarned means the toxic message raised the streak but did not
	// trip the threshold.
	ActionWarned Action = "warning"
	// ActionMuted means the toxic message tripped the threshold and the
	// sender is now muted.
	ActionMuted Action = "muted"
	// ActionRejected means the sender was already muted; nothing changed.
	ActionRejected Action = "rejected"
)

// Outcome pairs the action taken with the status snapshot after it.
type Outcome struct {
	Action Action
	Status models.MuteStatus
}

// RecordSnapshot is the persisted form of one (user, room) record.
type RecordSnapshot struct {
	Username              string
	RoomID                string
	WarningCount          int
	ConsecutiveToxicCount int
	IsMuted               bool
	MutedAt               *time.Time
	MuteExpiresAt         *time.Time
	TotalMuteCount        int
}

// Store persists moderation records across restarts. Save and Load must be
// safe for concurrent use; the engine serializes per key on its side.
type Store interface {
	Save(snap RecordSnapshot) error
	Load(username, roomID string) (*RecordSnapshot, error)
}

// UnmuteFunc is invoked exactly once per mute expiry or manual unmute, after
// the record has transitioned back to not-muted.
type UnmuteFunc func(username, roomID string, status models.MuteStatus)

type key struct {
	username string
	roomID   string
}

// record holds the live moderation state for one (user, room) pair. All
// fields are guarded by mu; muteSeq invalidates stale unmute timers.
type record struct {
	mu                    sync.Mutex
	warningCount          int
	consecutiveToxicCount int
	isMuted               bool
	mutedAt               *time.Time
	muteExpiresAt         *time.Time
	totalMuteCount        int
	muteSeq               int
	unmuteTimer           *time.Timer
}

// Engine is the single source of truth for warning/mute state. It owns one
// record per (user, room) pair and linearizes all mutations per key, so two
// racing toxic messages can never both trip the threshold.
type Engine struct {
	mu      sync.RWMutex
	records map[key]*record

	threshold    int
	muteDuration time.Duration

	store    Store
	onUnmute UnmuteFunc
}

// NewEngine creates a moderation engine. store may be nil (no persistence);
// onUnmute may be nil (no proactive expiry notification).
func NewEngine(threshold int, muteDuration time.Duration, store Store, onUnmute UnmuteFunc) *Engine {
	if threshold <= 0 {
		threshold = 5
	}
	return &Engine{
		records:      make(map[key]*record),
		threshold:    threshold,
		muteDuration: muteDuration,
		store:        store,
		onUnmute:     onUnmute,
	}
}

// SetUnmuteFunc installs the unmute notification callback. Call it during
// wiring, before the engine starts taking traffic.
func (e *Engine) SetUnmuteFunc(fn UnmuteFunc) {
	e.mu.Lock()
	e.onUnmute = fn
	e.mu.Unlock()
}

// getRecord returns the live record for the key, loading it from the store
// on first access or creating it lazily.
func (e *Engine) getRecord(username, roomID string) *record {
	k := key{username: username, roomID: roomID}

	e.mu.RLock()
	rec, ok := e.records[k]
	e.mu.RUnlock()
	if ok {
		return rec
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if rec, ok = e.records[k]; ok {
		return rec
	}

	rec = &record{}
	if e.store != nil {
		snap, err := e.store.Load(username, roomID)
		if err != nil {
			log.Printf("Failed to load moderation record for %s in %s: %v", username, roomID, err)
		} else if snap != nil {
			rec.warningCount = snap.WarningCount
			rec.consecutiveToxicCount = snap.ConsecutiveToxicCount
			rec.isMuted = snap.IsMuted
			rec.mutedAt = snap.MutedAt
			rec.muteExpiresAt = snap.MuteExpiresAt
			rec.totalMuteCount = snap.TotalMuteCount
		}
	}
	e.records[k] = rec
	return rec
}

// RecordToxic feeds one toxic message into the state machine. If the sender
// is already muted the call is a safe no-op returning ActionRejected.
func (e *Engine) RecordToxic(username, roomID string) Outcome {
	rec := e.getRecord(username, roomID)

	rec.mu.Lock()
	now := time.Now()
	notify := e.normalizeLocked(rec, username, roomID, now)

	if rec.isMuted {
		out := Outcome{Action: ActionRejected, Status: e.statusLocked(rec, now)}
		rec.mu.Unlock()
		e.fireUnmute(notify)
		return out
	}

	rec.warningCount++
	rec.consecutiveToxicCount++

	action := ActionWarned
	if rec.consecutiveToxicCount >= e.threshold {
		expires := now.Add(e.muteDuration)
		rec.isMuted = true
		rec.mutedAt = &now
		rec.muteExpiresAt = &expires
		rec.totalMuteCount++
		rec.consecutiveToxicCount = 0
		rec.muteSeq++
		e.armUnmuteTimerLocked(rec, username, roomID, rec.muteSeq)
		action = ActionMuted
		log.Printf("User %s muted in room %s until %s (mute #%d)", username, roomID, expires.Format(time.RFC3339), rec.totalMuteCount)
	}

	e.saveLocked(rec, username, roomID)
	out := Outcome{Action: action, Status: e.statusLocked(rec, now)}
	rec.mu.Unlock()

	e.fireUnmute(notify)
	return out
}

// RecordClean resets the toxic streak. Muted senders are left untouched:
// their messages are rejected upstream, so a defensive call here must not
// alter counters.
func (e *Engine) RecordClean(username, roomID string) {
	rec := e.getRecord(username, roomID)

	rec.mu.Lock()
	notify := e.normalizeLocked(rec, username, roomID, time.Now())
	if !rec.isMuted && rec.consecutiveToxicCount != 0 {
		rec.consecutiveToxicCount = 0
		e.saveLocked(rec, username, roomID)
	}
	rec.mu.Unlock()

	e.fireUnmute(notify)
}

// Status reports the current standing for (user, room), persisting the
// normalization of an expired mute so a ghost mute is never reported twice.
func (e *Engine) Status(username, roomID string) models.MuteStatus {
	rec := e.getRecord(username, roomID)

	rec.mu.Lock()
	now := time.Now()
	notify := e.normalizeLocked(rec, username, roomID, now)
	status := e.statusLocked(rec, now)
	rec.mu.Unlock()

	e.fireUnmute(notify)
	return status
}

// Unmute lifts a mute manually. Returns false if the user was not muted.
func (e *Engine) Unmute(username, roomID string) bool {
	rec := e.getRecord(username, roomID)

	rec.mu.Lock()
	now := time.Now()
	notify := e.normalizeLocked(rec, username, roomID, now)
	if notify != nil {
		// The mute had already expired; normalization did the work.
		rec.mu.Unlock()
		e.fireUnmute(notify)
		return true
	}
	if !rec.isMuted {
		rec.mu.Unlock()
		return false
	}
	notify = e.unmuteLocked(rec, username, roomID, now)
	rec.mu.Unlock()

	e.fireUnmute(notify)
	log.Printf("Manually unmuted %s in room %s", username, roomID)
	return true
}

// MutedUsers lists the users currently muted in a room.
func (e *Engine) MutedUsers(roomID string) []models.MutedUser {
	e.mu.RLock()
	type entry struct {
		username string
		rec      *record
	}
	entries := make([]entry, 0)
	for k, rec := range e.records {
		if k.roomID == roomID {
			entries = append(entries, entry{username: k.username, rec: rec})
		}
	}
	e.mu.RUnlock()

	muted := []models.MutedUser{}
	for _, en := range entries {
		en.rec.mu.Lock()
		now := time.Now()
		notify := e.normalizeLocked(en.rec, en.username, roomID, now)
		if en.rec.isMuted && en.rec.muteExpiresAt != nil {
			remaining := int(en.rec.muteExpiresAt.Sub(now).Seconds())
			if remaining < 0 {
				remaining = 0
			}
			muted = append(muted, models.MutedUser{
				Username:         en.username,
				MutedAt:          en.rec.mutedAt,
				MuteExpiresAt:    *en.rec.muteExpiresAt,
				RemainingSeconds: remaining,
				WarningCount:     en.rec.warningCount,
				TotalMuteCount:   en.rec.totalMuteCount,
			})
		}
		en.rec.mu.Unlock()
		e.fireUnmute(notify)
	}
	return muted
}

// UserStats aggregates a user's moderation state across all rooms seen by
// this process.
func (e *Engine) UserStats(username string) models.UserModerationStats {
	e.mu.RLock()
	type entry struct {
		roomID string
		rec    *record
	}
	entries := make([]entry, 0)
	for k, rec := range e.records {
		if k.username == username {
			entries = append(entries, entry{roomID: k.roomID, rec: rec})
		}
	}
	e.mu.RUnlock()

	stats := models.UserModerationStats{Username: username, Rooms: []models.RoomModerationStats{}}
	for _, en := range entries {
		en.rec.mu.Lock()
		notify := e.normalizeLocked(en.rec, username, en.roomID, time.Now())
		stats.TotalWarnings += en.rec.warningCount
		stats.TotalMutes += en.rec.totalMuteCount
		stats.Rooms = append(stats.Rooms, models.RoomModerationStats{
			RoomID:                en.roomID,
			WarningCount:          en.rec.warningCount,
			ConsecutiveToxicCount: en.rec.consecutiveToxicCount,
			TotalMuteCount:        en.rec.totalMuteCount,
			IsMuted:               en.rec.isMuted,
			MuteExpiresAt:         en.rec.muteExpiresAt,
		})
		en.rec.mu.Unlock()
		e.fireUnmute(notify)
	}
	return stats
}

// Close stops all pending unmute timers.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range e.records {
		rec.mu.Lock()
		if rec.unmuteTimer != nil {
			rec.unmuteTimer.Stop()
			rec.unmuteTimer = nil
		}
		rec.muteSeq++
		rec.mu.Unlock()
	}
}

// pendingUnmute carries an unmute notification out of the record lock.
type pendingUnmute struct {
	username string
	roomID   string
	status   models.MuteStatus
}

func (e *Engine) fireUnmute(p *pendingUnmute) {
	if p == nil {
		return
	}
	e.mu.RLock()
	fn := e.onUnmute
	e.mu.RUnlock()
	if fn != nil {
		fn(p.username, p.roomID, p.status)
	}
}

// normalizeLocked clears an expired mute. It returns a notification to fire
// after the record lock is released, or nil if nothing changed.
func (e *Engine) normalizeLocked(rec *record, username, roomID string, now time.Time) *pendingUnmute {
	if !rec.isMuted || rec.muteExpiresAt == nil || now.Before(*rec.muteExpiresAt) {
		return nil
	}
	return e.unmuteLocked(rec, username, roomID, now)
}

// unmuteLocked transitions a muted record back to clear. Bumping muteSeq
// invalidates the armed timer so the transition fires exactly once whether
// the timer or a lazy read gets there first.
func (e *Engine) unmuteLocked(rec *record, username, roomID string, now time.Time) *pendingUnmute {
	rec.isMuted = false
	rec.mutedAt = nil
	rec.muteExpiresAt = nil
	rec.consecutiveToxicCount = 0
	rec.muteSeq++
	if rec.unmuteTimer != nil {
		rec.unmuteTimer.Stop()
		rec.unmuteTimer = nil
	}
	e.saveLocked(rec, username, roomID)
	return &pendingUnmute{
		username: username,
		roomID:   roomID,
		status:   e.statusLocked(rec, now),
	}
}

// armUnmuteTimerLocked schedules the proactive expiry notification so an
// idle muted user is still unmuted on time.
func (e *Engine) armUnmuteTimerLocked(rec *record, username, roomID string, seq int) {
	if rec.unmuteTimer != nil {
		rec.unmuteTimer.Stop()
	}
	rec.unmuteTimer = time.AfterFunc(e.muteDuration, func() {
		rec.mu.Lock()
		if !rec.isMuted || rec.muteSeq != seq {
			rec.mu.Unlock()
			return
		}
		notify := e.unmuteLocked(rec, username, roomID, time.Now())
		rec.mu.Unlock()
		e.fireUnmute(notify)
	})
}

func (e *Engine) statusLocked(rec *record, now time.Time) models.MuteStatus {
	status := models.MuteStatus{
		IsMuted:               rec.isMuted,
		WarningCount:          rec.warningCount,
		ConsecutiveToxicCount: rec.consecutiveToxicCount,
		TotalMuteCount:        rec.totalMuteCount,
		MuteDurationMinutes:   int(e.muteDuration.Minutes()),
		ToxicThreshold:        e.threshold,
	}

	remaining := e.threshold - rec.consecutiveToxicCount
	if remaining < 0 {
		remaining = 0
	}
	status.WarningsUntilMute = remaining

	if rec.isMuted && rec.muteExpiresAt != nil {
		expires := *rec.muteExpiresAt
		status.MuteExpiresAt = &expires
		secs := int(expires.Sub(now).Seconds())
		if secs < 0 {
			secs = 0
		}
		status.RemainingSeconds = &secs
	}

	return status
}

func (e *Engine) saveLocked(rec *record, username, roomID string) {
	if e.store == nil {
		return
	}
	snap := RecordSnapshot{
		Username:              username,
		RoomID:                roomID,
		WarningCount:          rec.warningCount,
		ConsecutiveToxicCount: rec.consecutiveToxicCount,
		IsMuted:               rec.isMuted,
		MutedAt:               rec.mutedAt,
		MuteExpiresAt:         rec.muteExpiresAt,
		TotalMuteCount:        rec.totalMuteCount,
	}
	if err := e.store.Save(snap); err != nil {
		log.Printf("Failed to persist moderation record for %s in %s: %v", username, roomID, err)
	}
}
