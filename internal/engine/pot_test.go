package engine

import (
	"testing"

	"github.com/as00paf/kpoker/internal/models"
)

func contributor(id string, total int64, folded bool) *models.Player {
	p := models.NewPlayer(id, id, 0)
	p.TotalContribution = total
	p.IsFolded = folded
	return p
}

func TestCalculatePotsEqualContributions(t *testing.T) {
	players := []*models.Player{
		contributor("p1", 100, false),
		contributor("p2", 100, false),
		contributor("p3", 100, false),
	}
	pots := CalculatePots(players)
	if len(pots) != 1 {
		t.Fatalf("expected 1 pot, got %d", len(pots))
	}
	if pots[0].Amount != 300 {
		t.Errorf("amount = %d, want 300", pots[0].Amount)
	}
	if len(pots[0].Eligible) != 3 {
		t.Errorf("eligible = %v, want all three", pots[0].Eligible)
	}
}

func TestCalculatePotsSidePotIsolation(t *testing.T) {
	// Short stack all-in for 100; the others bet 400 each on top.
	players := []*models.Player{
		contributor("short", 100, false),
		contributor("p2", 400, false),
		contributor("p3", 400, false),
	}
	pots := CalculatePots(players)
	if len(pots) != 2 {
		t.Fatalf("expected main + side pot, got %d pots", len(pots))
	}

	main := pots[0]
	if main.Amount != 300 {
		t.Errorf("main pot = %d, want 300", main.Amount)
	}
	if len(main.Eligible) != 3 {
		t.Errorf("main pot eligible = %v, want all three", main.Eligible)
	}

	side := pots[1]
	if side.Amount != 600 {
		t.Errorf("side pot = %d, want 600", side.Amount)
	}
	for _, id := range side.Eligible {
		if id == "short" {
			t.Error("short stack must not be eligible for the side pot")
		}
	}
}

func TestCalculatePotsFoldedChipsStayButIneligible(t *testing.T) {
	players := []*models.Player{
		contributor("p1", 200, false),
		contributor("folder", 200, true),
		contributor("p3", 200, false),
	}
	pots := CalculatePots(players)
	if len(pots) != 1 {
		t.Fatalf("expected 1 pot, got %d", len(pots))
	}
	if pots[0].Amount != 600 {
		t.Errorf("amount = %d, want 600 including folded chips", pots[0].Amount)
	}
	for _, id := range pots[0].Eligible {
		if id == "folder" {
			t.Error("folded player must not be eligible")
		}
	}
}

func TestDistributeSplitsWithDeterministicRemainder(t *testing.T) {
	pots := []Pot{{Amount: 101, Eligible: []string{"p1", "p2"}}}
	tie, _ := Evaluate([]models.Card{
		card(models.Ace, models.Spades), card(models.Jack, models.Hearts),
		card(models.Nine, models.Diamonds), card(models.Five, models.Clubs),
		card(models.Two, models.Spades),
	})
	hands := map[string]models.Hand{"p1": tie, "p2": tie}

	// p2 sits closest to the dealer's left, so the odd chip is theirs.
	won := Distribute(pots, hands, []string{"p2", "p1"})
	if won["p2"] != 51 {
		t.Errorf("p2 won %d, want 51", won["p2"])
	}
	if won["p1"] != 50 {
		t.Errorf("p1 won %d, want 50", won["p1"])
	}
}

func TestDetermineWinnersIncludesTies(t *testing.T) {
	board := []models.Card{
		card(models.Ace, models.Spades), card(models.King, models.Hearts),
		card(models.Queen, models.Diamonds), card(models.Jack, models.Clubs),
		card(models.Ten, models.Spades),
	}
	holeCards := map[string][]models.Card{
		"p1": {card(models.Two, models.Hearts), card(models.Three, models.Hearts)},
		"p2": {card(models.Four, models.Clubs), card(models.Five, models.Diamonds)},
		"p3": {card(models.Ace, models.Hearts), card(models.Two, models.Clubs)},
	}

	// The board plays for everyone: a broadway straight, three-way chop.
	winners, err := DetermineWinners(board, holeCards)
	if err != nil {
		t.Fatalf("determine winners: %v", err)
	}
	if len(winners) != 3 {
		t.Fatalf("winners = %v, want all three", winners)
	}
}

func TestDistributeSidePotsIndependently(t *testing.T) {
	strong, _ := Evaluate([]models.Card{
		card(models.Ace, models.Spades), card(models.Ace, models.Hearts),
		card(models.Ace, models.Diamonds), card(models.King, models.Clubs),
		card(models.King, models.Spades),
	})
	weak, _ := Evaluate([]models.Card{
		card(models.Nine, models.Spades), card(models.Seven, models.Hearts),
		card(models.Five, models.Diamonds), card(models.Three, models.Clubs),
		card(models.Two, models.Spades),
	})
	medium, _ := Evaluate([]models.Card{
		card(models.Queen, models.Spades), card(models.Queen, models.Hearts),
		card(models.Nine, models.Diamonds), card(models.Five, models.Clubs),
		card(models.Two, models.Hearts),
	})

	// The short stack holds the best hand but is only in the main pot.
	pots := []Pot{
		{Amount: 300, Eligible: []string{"short", "p2", "p3"}},
		{Amount: 600, Eligible: []string{"p2", "p3"}},
	}
	hands := map[string]models.Hand{"short": strong, "p2": weak, "p3": medium}

	won := Distribute(pots, hands, []string{"short", "p2", "p3"})
	if won["short"] != 300 {
		t.Errorf("short won %d, want 300", won["short"])
	}
	if won["p3"] != 600 {
		t.Errorf("p3 won %d, want 600", won["p3"])
	}
	if won["p2"] != 0 {
		t.Errorf("p2 won %d, want 0", won["p2"])
	}
}
