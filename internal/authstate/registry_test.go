package authstate_test

import (
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"sephira/internal/authstate"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRegistry(t *testing.T) {
	c := qt.New(t)
	clk := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	var clients []*fakeClient
	var tokens []string
	factory := func(token string) *authstate.Manager {
		fc := newFakeClient()
		clients = append(clients, fc)
		tokens = append(tokens, token)
		return authstate.NewManager(fc, newFakeRoles(), authstate.Options{})
	}
	reg := authstate.NewRegistry(factory, time.Hour, clk.Now)
	defer reg.Close()

	root := &url.URL{Path: "/"}
	a := reg.Acquire("browser-a", "tok-a", root)
	c.Assert(reg.Acquire("browser-a", "ignored", root), qt.Equals, a)
	c.Assert(tokens, qt.DeepEquals, []string{"tok-a"})

	b := reg.Acquire("browser-b", "", root)
	c.Assert(b, qt.Not(qt.Equals), a)
	c.Assert(reg.Len(), qt.Equals, 2)
	waitFor(t, a, settled)

	// a stays fresh, b goes idle.
	clk.Advance(40 * time.Minute)
	reg.Acquire("browser-a", "", root)
	clk.Advance(40 * time.Minute)
	reg.Sweep()

	c.Assert(reg.Len(), qt.Equals, 1)
	c.Assert(clients[1].ListenerCount(), qt.Equals, 0)
	c.Assert(clients[0].ListenerCount(), qt.Equals, 1)

	reg.Forget("browser-a")
	c.Assert(reg.Len(), qt.Equals, 0)
	c.Assert(clients[0].ListenerCount(), qt.Equals, 0)

	// A returning browser gets a fresh manager.
	c.Assert(reg.Acquire("browser-b", "", root), qt.Not(qt.Equals), b)
}

func TestRegistry_Limit(t *testing.T) {
	c := qt.New(t)
	clk := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	clients := make(map[string]*fakeClient)
	var next string
	factory := func(string) *authstate.Manager {
		fc := newFakeClient()
		clients[next] = fc
		return authstate.NewManager(fc, newFakeRoles(), authstate.Options{})
	}
	reg := authstate.NewRegistry(factory, time.Hour, clk.Now)
	reg.SetLimit(2)
	defer reg.Close()

	root := &url.URL{Path: "/"}
	acquire := func(id string) *authstate.Manager {
		next = id
		return reg.Acquire(id, "", root)
	}

	a := acquire("browser-a")
	clk.Advance(time.Minute)
	acquire("browser-b")
	clk.Advance(time.Minute)
	// a is now the most recently seen.
	c.Assert(acquire("browser-a"), qt.Equals, a)
	clk.Advance(time.Minute)

	acquire("browser-c")
	c.Assert(reg.Len(), qt.Equals, 2)
	c.Assert(clients["browser-b"].ListenerCount(), qt.Equals, 0)
	c.Assert(clients["browser-a"].ListenerCount(), qt.Equals, 1)
	c.Assert(clients["browser-c"].ListenerCount(), qt.Equals, 1)

	c.Run("many cookieless requests stay under the cap", func(c *qt.C) {
		for i := 0; i < 50; i++ {
			acquire(fmt.Sprintf("anon-%d", i))
			clk.Advance(time.Second)
		}
		c.Assert(reg.Len(), qt.Equals, 2)
		live := 0
		for _, fc := range clients {
			live += fc.ListenerCount()
		}
		c.Assert(live, qt.Equals, 2)
	})
}
