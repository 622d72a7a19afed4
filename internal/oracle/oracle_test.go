package oracle_test

import (
	"math/rand/v2"
	"testing"

	qt "github.com/frankban/quicktest"

	"sephira/internal/oracle"
)

func TestDeck(t *testing.T) {
	c := qt.New(t)
	deck := oracle.Deck()
	c.Assert(deck, qt.HasLen, 10)
	for i, card := range deck {
		c.Assert(card.ID, qt.Equals, i+1)
		c.Assert(card.Name, qt.Not(qt.Equals), "")
		c.Assert(card.Affirmation, qt.Not(qt.Equals), "")
	}

	deck[0].Name = "changed"
	first, ok := oracle.Find(1)
	c.Assert(ok, qt.IsTrue)
	c.Assert(first.Name, qt.Equals, "Kether — A Coroa")

	_, ok = oracle.Find(11)
	c.Assert(ok, qt.IsFalse)
}

func TestDraw(t *testing.T) {
	c := qt.New(t)
	rng := rand.New(rand.NewPCG(1, 2))
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		card := oracle.Draw(rng)
		c.Assert(card.ID >= 1 && card.ID <= 10, qt.IsTrue)
		seen[card.ID] = true
	}
	c.Assert(seen, qt.HasLen, 10)

	// The same seed draws the same sequence.
	a := rand.New(rand.NewPCG(7, 7))
	b := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 20; i++ {
		c.Assert(oracle.Draw(a), qt.DeepEquals, oracle.Draw(b))
	}

	c.Assert(oracle.Draw(nil).ID, qt.Not(qt.Equals), 0)
}
