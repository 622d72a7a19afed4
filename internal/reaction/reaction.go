// Package reaction lets anonymous visitors react to posts with one of a
// small set of reactions, at most one per visitor and post.
package reaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Type is a reaction kind.
type Type string

const (
	Heart Type = "heart"
	Light Type = "light"
	Leaf  Type = "leaf"
)

// Types lists the reaction kinds in display order.
var Types = []Type{Heart, Light, Leaf}

// ErrBusy is returned when a toggle for the same visitor and post is still
// in flight.
var ErrBusy = errors.New("reaction toggle already in progress")

// ParseType validates s as a reaction kind.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown reaction type %q", s)
}

// Counts holds the number of reactions of each kind.
type Counts map[Type]int

// Total sums all kinds.
func (c Counts) Total() int {
	n := 0
	for _, t := range Types {
		n += c[t]
	}
	return n
}

func (c Counts) dec(t Type) {
	if c[t] > 0 {
		c[t]--
	}
}

// Store is the persistence a Tracker needs.
type Store interface {
	ListByPost(ctx context.Context, postID string) ([]Row, error)
	Insert(ctx context.Context, postID, visitorID string, t Type) error
	DeleteByVisitor(ctx context.Context, postID, visitorID string) error
}

// Row is one stored reaction.
type Row struct {
	VisitorID string
	Type      Type
}

// Snapshot is a copy of a tracker's state.
type Snapshot struct {
	Counts Counts
	Mine   Type // empty when the visitor has not reacted
	Total  int
}

// Tracker holds the reaction counts of one post as seen by one visitor.
type Tracker struct {
	store     Store
	postID    string
	visitorID string

	mu     sync.Mutex
	counts Counts
	mine   Type
	busy   bool
}

// NewTracker creates a tracker with zero counts. Call Load to fill it.
func NewTracker(store Store, postID, visitorID string) *Tracker {
	return &Tracker{
		store:     store,
		postID:    postID,
		visitorID: visitorID,
		counts:    Counts{},
	}
}

// Load replaces the tracker's state with the stored reactions.
func (t *Tracker) Load(ctx context.Context) error {
	rows, err := t.store.ListByPost(ctx, t.postID)
	if err != nil {
		return err
	}
	counts := Counts{}
	var mine Type
	for _, r := range rows {
		if _, err := ParseType(string(r.Type)); err != nil {
			continue
		}
		counts[r.Type]++
		if r.VisitorID == t.visitorID {
			mine = r.Type
		}
	}

	t.mu.Lock()
	t.counts, t.mine = counts, mine
	t.mu.Unlock()
	return nil
}

// Toggle adds a reaction of kind typ, removes it when it is the visitor's
// current one, or replaces a reaction of another kind. Calls made while a
// toggle is in flight return ErrBusy and change nothing.
//
// Replacing deletes before inserting. When the insert fails the deletion
// stands and the visitor is left without a reaction.
func (t *Tracker) Toggle(ctx context.Context, typ Type) error {
	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		return ErrBusy
	}
	t.busy = true
	prev := t.mine
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.busy = false
		t.mu.Unlock()
	}()

	switch {
	case prev == typ:
		if err := t.store.DeleteByVisitor(ctx, t.postID, t.visitorID); err != nil {
			return fmt.Errorf("error removing reaction: %w", err)
		}
		t.update(func() {
			t.counts.dec(typ)
			t.mine = ""
		})

	case prev != "":
		if err := t.store.DeleteByVisitor(ctx, t.postID, t.visitorID); err != nil {
			return fmt.Errorf("error removing reaction: %w", err)
		}
		t.update(func() {
			t.counts.dec(prev)
			t.mine = ""
		})
		if err := t.store.Insert(ctx, t.postID, t.visitorID, typ); err != nil {
			return fmt.Errorf("error adding reaction: %w", err)
		}
		t.update(func() {
			t.counts[typ]++
			t.mine = typ
		})

	default:
		if err := t.store.Insert(ctx, t.postID, t.visitorID, typ); err != nil {
			return fmt.Errorf("error adding reaction: %w", err)
		}
		t.update(func() {
			t.counts[typ]++
			t.mine = typ
		})
	}
	return nil
}

func (t *Tracker) update(fn func()) {
	t.mu.Lock()
	fn()
	t.mu.Unlock()
}

// Busy reports whether a toggle is in flight.
func (t *Tracker) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// Counts returns a copy of the counts.
func (t *Tracker) Counts() Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copyCounts()
}

// Mine returns the visitor's reaction, empty when there is none.
func (t *Tracker) Mine() Type {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mine
}

// Total returns the number of reactions of all kinds.
func (t *Tracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts.Total()
}

// Snapshot returns a copy of the tracker's state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{Counts: t.copyCounts(), Mine: t.mine, Total: t.counts.Total()}
}

func (t *Tracker) copyCounts() Counts {
	c := make(Counts, len(Types))
	for _, typ := range Types {
		c[typ] = t.counts[typ]
	}
	return c
}
