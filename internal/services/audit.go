package services

import (
	"sync"
	"time"

	"github.com/soaringjerry/Assay/internal/models"
)

// AuditLog is an append-only record of authoring, completion and moderation actions.
type AuditLog struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	now     func() time.Time
	idGen   func() string
}

func NewAuditLog() *AuditLog {
	return &AuditLog{
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return "a" + shortID(11) },
	}
}

func (a *AuditLog) Record(actor, action, target, note string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if actor == "" {
		actor = "system"
	}
	a.entries = append(a.entries, models.AuditEntry{
		ID:     a.idGen(),
		Time:   a.now(),
		Actor:  actor,
		Action: action,
		Target: target,
		Note:   note,
	})
}

// Entries returns a copy in insertion order.
func (a *AuditLog) Entries() []models.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.AuditEntry(nil), a.entries...)
}

// Count returns how many entries carry the given action.
func (a *AuditLog) Count(action string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (a *AuditLog) restore(entries []models.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append([]models.AuditEntry(nil), entries...)
}
