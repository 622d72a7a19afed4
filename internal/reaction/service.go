package reaction

import (
	"context"
	"sync"
)

type key struct {
	postID    string
	visitorID string
}

type shared struct {
	tracker *Tracker
	refs    int
}

// Service serves reactions across requests. A tracker lives only while a
// toggle of one visitor on one post runs; a second toggle arriving in that
// window is refused with ErrBusy.
type Service struct {
	Store Store

	mu       sync.Mutex
	trackers map[key]*shared
}

// NewService creates a reaction service.
func NewService(store Store) *Service {
	return &Service{Store: store, trackers: make(map[key]*shared)}
}

func (s *Service) acquire(postID, visitorID string) (*Tracker, bool) {
	k := key{postID, visitorID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.trackers[k]; ok {
		e.refs++
		return e.tracker, false
	}
	t := NewTracker(s.Store, postID, visitorID)
	s.trackers[k] = &shared{tracker: t, refs: 1}
	return t, true
}

func (s *Service) release(postID, visitorID string) {
	k := key{postID, visitorID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.trackers[k]; ok {
		e.refs--
		if e.refs == 0 {
			delete(s.trackers, k)
		}
	}
}

// Get loads the reactions of postID as seen by visitorID.
func (s *Service) Get(ctx context.Context, postID, visitorID string) (Snapshot, error) {
	t := NewTracker(s.Store, postID, visitorID)
	if err := t.Load(ctx); err != nil {
		return Snapshot{}, err
	}
	return t.Snapshot(), nil
}

// Toggle toggles typ for visitorID on postID and returns the resulting
// state. It returns ErrBusy when the visitor already has a toggle running
// on that post.
func (s *Service) Toggle(ctx context.Context, postID, visitorID string, typ Type) (Snapshot, error) {
	t, fresh := s.acquire(postID, visitorID)
	defer s.release(postID, visitorID)

	if !fresh {
		return Snapshot{}, ErrBusy
	}
	if err := t.Load(ctx); err != nil {
		return Snapshot{}, err
	}
	err := t.Toggle(ctx, typ)
	return t.Snapshot(), err
}
