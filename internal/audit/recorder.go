package audit

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/souvikree/notifly-backend/pkg/db/models"
	"github.com/souvikree/notifly-backend/pkg/logger"
)

// Entry is one admin action to record.
type Entry struct {
	Actor    string
	Action   string
	TenantID string
	Subject  string
	Detail   map[string]any
}

// Recorder persists audit entries without blocking the caller's request path.
// Writes go through a buffered channel drained by a single goroutine; a full
// buffer drops the entry and logs instead of applying backpressure.
type Recorder struct {
	db      *gorm.DB
	logg    *logger.Logger
	entries chan Entry
	done    chan struct{}
}

// NewRecorder builds a Recorder and starts its drain goroutine.
func NewRecorder(db *gorm.DB, logg *logger.Logger, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &Recorder{
		db:      db,
		logg:    logg,
		entries: make(chan Entry, bufferSize),
		done:    make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record enqueues an entry. It never blocks; overflow is dropped.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	select {
	case r.entries <- entry:
	default:
		if r.logg != nil {
			r.logg.Warn(ctx, "audit buffer full, entry dropped")
		}
	}
}

// Close stops accepting entries and waits for the buffer to flush.
func (r *Recorder) Close() {
	close(r.entries)
	<-r.done
}

func (r *Recorder) drain() {
	defer close(r.done)
	for entry := range r.entries {
		r.write(entry)
	}
}

func (r *Recorder) write(entry Entry) {
	var detail json.RawMessage
	if entry.Detail != nil {
		encoded, err := json.Marshal(entry.Detail)
		if err == nil {
			detail = encoded
		}
	}
	event := models.AuditEvent{
		Actor:    entry.Actor,
		Action:   entry.Action,
		TenantID: entry.TenantID,
		Subject:  entry.Subject,
		Detail:   detail,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil && r.logg != nil {
		r.logg.Error(ctx, "audit write failed", err)
	}
}
