package models

import (
	"errors"
	"testing"
)

func TestDeckHas52DistinctCards(t *testing.T) {
	deck := NewDeck()
	if deck.Remaining() != 52 {
		t.Fatalf("expected 52 cards, got %d", deck.Remaining())
	}

	seen := make(map[Card]bool)
	for i := 0; i < 52; i++ {
		card, err := deck.Draw()
		if err != nil {
			t.Fatalf("draw %d failed: %v", i, err)
		}
		if seen[card] {
			t.Fatalf("duplicate card drawn: %v", card)
		}
		seen[card] = true
	}

	if _, err := deck.Draw(); !errors.Is(err, ErrDeckEmpty) {
		t.Fatalf("expected ErrDeckEmpty, got %v", err)
	}
}

func TestDeckResetRefills(t *testing.T) {
	deck := NewDeck()
	for i := 0; i < 10; i++ {
		deck.Draw()
	}
	deck.Reset()
	if deck.Remaining() != 52 {
		t.Fatalf("expected 52 after reset, got %d", deck.Remaining())
	}
}

func TestCardString(t *testing.T) {
	tests := []struct {
		card Card
		want string
	}{
		{Card{Rank: Ace, Suit: Spades}, "As"},
		{Card{Rank: Ten, Suit: Diamonds}, "Td"},
		{Card{Rank: Two, Suit: Clubs}, "2c"},
		{Card{Rank: Queen, Suit: Hearts}, "Qh"},
	}
	for _, tt := range tests {
		if got := tt.card.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.card, got, tt.want)
		}
	}
}

func TestPlaceBetCapsAtStack(t *testing.T) {
	p := NewPlayer("p1", "Alice", 50)
	p.PlaceBet(100)
	if p.Chips != 0 {
		t.Errorf("chips = %d, want 0", p.Chips)
	}
	if p.CurrentBet != 50 {
		t.Errorf("currentBet = %d, want 50", p.CurrentBet)
	}
	if !p.IsAllIn {
		t.Error("expected all-in")
	}
	if p.TotalContribution != 50 {
		t.Errorf("totalContribution = %d, want 50", p.TotalContribution)
	}
}

func TestRedactHidesOtherHoleCards(t *testing.T) {
	s := NewGameState()
	p1 := NewPlayer("p1", "Alice", 1000)
	p1.HoleCards = []Card{{Rank: Ace, Suit: Spades}, {Rank: King, Suit: Spades}}
	p2 := NewPlayer("p2", "Bob", 1000)
	p2.HoleCards = []Card{{Rank: Two, Suit: Clubs}, {Rank: Three, Suit: Clubs}}
	s.Players = append(s.Players, p1, p2)
	s.Stage = StageFlop

	snap := s.Clone()
	snap.Redact("p1")
	if len(snap.Players[0].HoleCards) != 2 {
		t.Error("viewer's own cards should stay visible")
	}
	if len(snap.Players[1].HoleCards) != 0 {
		t.Error("opponent's cards should be hidden before showdown")
	}
	if len(s.Players[1].HoleCards) != 2 {
		t.Error("redacting a clone must not touch the live state")
	}

	showdown := s.Clone()
	showdown.Stage = StageShowdown
	showdown.Redact("p1")
	if len(showdown.Players[1].HoleCards) != 2 {
		t.Error("all cards should be visible at showdown")
	}
}
