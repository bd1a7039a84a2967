package engine

import (
	"fmt"
	"sort"

	"github.com/as00paf/kpoker/internal/models"
)

// Pot is one layer of the pot. Eligible lists the non-folded players who
// contributed up to this layer's level and can therefore win it.
type Pot struct {
	Amount   int64    `json:"amount"`
	Eligible []string `json:"eligible"`
}

// CalculatePots splits the hand's total contributions into a main pot and
// side pots. Folded players' chips stay in the pots they funded but folded
// players are never eligible. Contributions are per-hand totals, so pots are
// correct across betting rounds regardless of when someone went all-in.
func CalculatePots(players []*models.Player) []Pot {
	levels := make([]int64, 0, len(players))
	seen := make(map[int64]bool)
	for _, p := range players {
		if p.TotalContribution > 0 && !seen[p.TotalContribution] {
			seen[p.TotalContribution] = true
			levels = append(levels, p.TotalContribution)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]Pot, 0, len(levels))
	var prev int64
	for _, level := range levels {
		slice := level - prev
		var amount int64
		var eligible []string
		for _, p := range players {
			if p.TotalContribution >= level {
				amount += slice
				if !p.IsFolded {
					eligible = append(eligible, p.ID)
				}
			}
		}
		prev = level
		if amount > 0 {
			pots = append(pots, Pot{Amount: amount, Eligible: eligible})
		}
	}
	return pots
}

// Distribute pays each pot to the best eligible hand(s). Ties split evenly;
// when the split leaves a remainder the odd chips go to the tied winner
// appearing earliest in seatOrder. Returns amount won per player id.
func Distribute(pots []Pot, hands map[string]models.Hand, seatOrder []string) map[string]int64 {
	won := make(map[string]int64)
	for _, pot := range pots {
		winners := bestEligible(pot.Eligible, hands)
		if len(winners) == 0 {
			continue
		}
		winners = sortBySeatOrder(winners, seatOrder)
		share := pot.Amount / int64(len(winners))
		remainder := pot.Amount % int64(len(winners))
		for i, id := range winners {
			amount := share
			if int64(i) < remainder {
				amount++
			}
			won[id] += amount
		}
	}
	return won
}

// DetermineWinners evaluates each player's hole cards against the board and
// returns the ids holding the best hand, ties included. Convenience path for
// hands with no side pots.
func DetermineWinners(board []models.Card, holeCards map[string][]models.Card) ([]string, error) {
	hands := make(map[string]models.Hand, len(holeCards))
	ids := make([]string, 0, len(holeCards))
	for id, hole := range holeCards {
		hand, err := EvaluateHoleCards(hole, board)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", id, err)
		}
		hands[id] = hand
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return bestEligible(ids, hands), nil
}

func bestEligible(eligible []string, hands map[string]models.Hand) []string {
	var winners []string
	var best models.Hand
	for _, id := range eligible {
		hand, ok := hands[id]
		if !ok {
			continue
		}
		if len(winners) == 0 {
			winners = []string{id}
			best = hand
			continue
		}
		switch cmp := hand.Compare(best); {
		case cmp > 0:
			winners = []string{id}
			best = hand
		case cmp == 0:
			winners = append(winners, id)
		}
	}
	return winners
}

func sortBySeatOrder(ids []string, seatOrder []string) []string {
	pos := make(map[string]int, len(seatOrder))
	for i, id := range seatOrder {
		pos[id] = i
	}
	sorted := append([]string(nil), ids...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return pos[sorted[i]] < pos[sorted[j]]
	})
	return sorted
}
