// Package meeting keeps the process-wide directory of meetings and the
// participant names recorded against each of them.
//
// The registry is independent from live websocket membership: recording a
// participant here does not bind any connection to the meeting's room.
package meeting

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ErrNotFound is returned when a meeting identifier was never created by
// this registry, or has expired.
var ErrNotFound = errors.New("meeting not found")

// IDGenerator returns a new opaque, globally unique meeting identifier.
type IDGenerator func() string

// Options tunes the registry. The zero value keeps meetings forever and
// generates random UUIDs.
type Options struct {
	// TTL bounds how long a meeting lives after creation. Zero or a negative
	// value disables expiry, so the registry grows with every Create call.
	TTL time.Duration
	// CleanupInterval is how often expired meetings are purged from memory.
	// Defaults to TTL when expiry is enabled.
	CleanupInterval time.Duration
	NewID           IDGenerator
}

// Meeting is a conversation context with its participant names in join order.
type Meeting struct {
	ID           string
	participants []string
}

// Registry owns every Meeting record. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	meetings *cache.Cache
	newID    IDGenerator
	log      *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger, opts Options) *Registry {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if opts.TTL > 0 {
		expiration = opts.TTL
		cleanup = opts.CleanupInterval
		if cleanup <= 0 {
			cleanup = opts.TTL
		}
	}

	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Registry{
		meetings: cache.New(expiration, cleanup),
		newID:    newID,
		log:      log,
	}
}

// Create inserts a meeting with no participants and returns its identifier.
func (r *Registry) Create() string {
	for {
		id := r.newID()
		if err := r.meetings.Add(id, &Meeting{ID: id}, cache.DefaultExpiration); err != nil {
			r.log.Warn("Generated meeting id already in use, retrying", "meeting_id", id)
			continue
		}
		r.log.Info("Meeting created", "meeting_id", id)
		return id
	}
}

// Join appends username to the meeting's participant list. Names are stored
// as given, including empty and duplicate ones.
func (r *Registry) Join(meetingID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.lookup(meetingID)
	if err != nil {
		r.log.Debug("Join rejected", "meeting_id", meetingID, "error", err)
		return fmt.Errorf("join %q: %w", meetingID, err)
	}

	m.participants = append(m.participants, username)
	r.log.Info("Participant joined meeting",
		"meeting_id", meetingID,
		"username", username,
		"participants", len(m.participants))
	return nil
}

// Participants returns a copy of the meeting's participant names in join order.
func (r *Registry) Participants(meetingID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.lookup(meetingID)
	if err != nil {
		return nil, fmt.Errorf("participants of %q: %w", meetingID, err)
	}
	return append([]string(nil), m.participants...), nil
}

// Count reports how many meetings are held in memory. Expired meetings are
// counted until the next cleanup pass removes them.
func (r *Registry) Count() int {
	return r.meetings.ItemCount()
}

func (r *Registry) lookup(meetingID string) (*Meeting, error) {
	item, ok := r.meetings.Get(meetingID)
	if !ok {
		return nil, ErrNotFound
	}
	return item.(*Meeting), nil
}
