// Package meeting holds the supervisor: the registry of active meetings, the
// inbound message router, the create/destroy lifecycle and the liveness probe
// for auth-validation forwarding.
package meeting

import (
	"sync"

	"github.com/conclave-live/backend/internal/messages"
	"github.com/conclave-live/backend/internal/models"
)

// Handler is the address of one meeting's session actor. Deliver and Ask must
// never block the caller; Ask returns a channel that receives at most one
// reply. Stop is idempotent.
type Handler interface {
	Deliver(msg messages.Message)
	Ask(msg messages.Message) <-chan messages.Message
	Stop()
}

// RunningMeeting pairs a meeting's identity with its session actor address.
// Owned exclusively by the Registry; nothing retains it past a dispatch.
type RunningMeeting struct {
	models.Meeting
	handler Handler
}

// Handler returns the session actor address.
func (rm *RunningMeeting) Handler() Handler { return rm.handler }

// Registry maps meeting id to its running meeting. Mutated only by the
// supervisor's lifecycle handling; read concurrently by HTTP handlers, so
// every access is mutex-scoped.
type Registry struct {
	mu       sync.RWMutex
	meetings map[string]*RunningMeeting
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{meetings: make(map[string]*RunningMeeting)}
}

// InsertIfAbsent adds the meeting unless an entry for its id already exists.
// Returns false when the id was already registered.
func (r *Registry) InsertIfAbsent(rm *RunningMeeting) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetings[rm.ID]; ok {
		return false
	}
	r.meetings[rm.ID] = rm
	return true
}

// Remove deletes and returns the meeting, or nil if absent.
func (r *Registry) Remove(id string) *RunningMeeting {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.meetings[id]
	if !ok {
		return nil
	}
	delete(r.meetings, id)
	return rm
}

// Get returns the meeting by id, or nil.
func (r *Registry) Get(id string) *RunningMeeting {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.meetings[id]
}

// FindByVoiceBridge scans for the meeting holding the given voice bridge id.
// At most one match is expected among concurrently active meetings.
func (r *Registry) FindByVoiceBridge(bridge string) *RunningMeeting {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rm := range r.meetings {
		if rm.VoiceBridge == bridge {
			return rm
		}
	}
	return nil
}

// ListAll returns a snapshot of all running meetings, in no particular order.
func (r *Registry) ListAll() []*RunningMeeting {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*RunningMeeting, 0, len(r.meetings))
	for _, rm := range r.meetings {
		out = append(out, rm)
	}
	return out
}

// Len returns the number of running meetings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.meetings)
}
