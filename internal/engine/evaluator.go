package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/as00paf/kpoker/internal/models"
)

// ErrNotEnoughCards is returned by Evaluate for fewer than five cards.
var ErrNotEnoughCards = errors.New("at least 5 cards are required to evaluate a hand")

// Evaluate classifies the best 5-card hand contained in 5 to 7 cards. The
// input is not modified.
func Evaluate(cards []models.Card) (models.Hand, error) {
	if len(cards) < 5 {
		return models.Hand{}, ErrNotEnoughCards
	}

	sorted := append([]models.Card(nil), cards...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Rank.Value() > sorted[j].Rank.Value()
	})

	checks := []func([]models.Card) (models.Hand, bool){
		findStraightFlush,
		findFourOfAKind,
		findFullHouse,
		findFlush,
		findStraight,
		findThreeOfAKind,
		findTwoPair,
		findPair,
	}
	for _, check := range checks {
		if hand, ok := check(sorted); ok {
			return hand, nil
		}
	}
	return findHighCard(sorted), nil
}

// EvaluateHoleCards is a convenience for the usual 2-hole-cards-plus-board
// call site.
func EvaluateHoleCards(hole, board []models.Card) (models.Hand, error) {
	all := make([]models.Card, 0, len(hole)+len(board))
	all = append(all, hole...)
	all = append(all, board...)
	return Evaluate(all)
}

func findStraightFlush(cards []models.Card) (models.Hand, bool) {
	flushCards, ok := flushSuitCards(cards)
	if !ok {
		return models.Hand{}, false
	}
	straight, ok := findStraight(flushCards)
	if !ok {
		return models.Hand{}, false
	}
	if straight.Cards[0].Rank == models.Ace && straight.Cards[4].Rank == models.Ten {
		return models.Hand{
			Type:        models.RoyalFlush,
			Cards:       straight.Cards,
			Description: "Royal Flush",
		}, true
	}
	high := straight.Cards[0].Rank
	return models.Hand{
		Type:        models.StraightFlush,
		Cards:       straight.Cards,
		Description: fmt.Sprintf("Straight Flush, %s-high", high.Name()),
	}, true
}

func findFourOfAKind(cards []models.Card) (models.Hand, bool) {
	groups := rankGroups(cards)
	quad, ok := bestGroupOfSize(groups, 4)
	if !ok {
		return models.Hand{}, false
	}
	quadCards := groups[quad]
	kickers := othersByRank(cards, 1, quad)
	return models.Hand{
		Type:        models.FourOfAKind,
		Cards:       append(quadCards[:4:4], kickers...),
		Kickers:     kickers,
		Description: fmt.Sprintf("Four of a Kind, %ss", quad.Name()),
	}, true
}

func findFullHouse(cards []models.Card) (models.Hand, bool) {
	groups := rankGroups(cards)
	var trips []models.Rank
	for rank, group := range groups {
		if len(group) >= 3 {
			trips = append(trips, rank)
		}
	}
	sort.Slice(trips, func(i, j int) bool { return trips[i].Value() > trips[j].Value() })

	for _, tripRank := range trips {
		var pairRank models.Rank
		for rank, group := range groups {
			if rank == tripRank || len(group) < 2 {
				continue
			}
			if pairRank == "" || rank.Value() > pairRank.Value() {
				pairRank = rank
			}
		}
		if pairRank == "" {
			continue
		}
		best := append(groups[tripRank][:3:3], groups[pairRank][:2]...)
		return models.Hand{
			Type:        models.FullHouse,
			Cards:       best,
			Description: fmt.Sprintf("Full House, %ss full of %ss", tripRank.Name(), pairRank.Name()),
		}, true
	}
	return models.Hand{}, false
}

func findFlush(cards []models.Card) (models.Hand, bool) {
	flushCards, ok := flushSuitCards(cards)
	if !ok {
		return models.Hand{}, false
	}
	high := flushCards[0].Rank
	return models.Hand{
		Type:        models.Flush,
		Cards:       flushCards[:5:5],
		Description: fmt.Sprintf("Flush, %s-high", high.Name()),
	}, true
}

func findStraight(cards []models.Card) (models.Hand, bool) {
	unique := distinctByRankDesc(cards)

	for i := 0; i+5 <= len(unique); i++ {
		if unique[i].Rank.Value()-unique[i+4].Rank.Value() == 4 {
			high := unique[i].Rank
			desc := fmt.Sprintf("Straight, %s-high", high.Name())
			return models.Hand{Type: models.Straight, Cards: unique[i : i+5 : i+5], Description: desc}, true
		}
	}

	// Wheel: the Ace plays low, so the five ranks as 5,4,3,2,A.
	if wheel, ok := findWheel(unique); ok {
		return models.Hand{Type: models.Straight, Cards: wheel, Description: "Straight, Five-high"}, true
	}
	return models.Hand{}, false
}

func findWheel(unique []models.Card) ([]models.Card, bool) {
	byRank := make(map[models.Rank]models.Card, len(unique))
	for _, c := range unique {
		byRank[c.Rank] = c
	}
	wheel := make([]models.Card, 0, 5)
	for _, r := range []models.Rank{models.Five, models.Four, models.Three, models.Two, models.Ace} {
		c, ok := byRank[r]
		if !ok {
			return nil, false
		}
		wheel = append(wheel, c)
	}
	return wheel, true
}

func findThreeOfAKind(cards []models.Card) (models.Hand, bool) {
	groups := rankGroups(cards)
	trip, ok := bestGroupOfSize(groups, 3)
	if !ok {
		return models.Hand{}, false
	}
	kickers := othersByRank(cards, 2, trip)
	return models.Hand{
		Type:        models.ThreeOfAKind,
		Cards:       append(groups[trip][:3:3], kickers...),
		Kickers:     kickers,
		Description: fmt.Sprintf("Three of a Kind, %ss", trip.Name()),
	}, true
}

func findTwoPair(cards []models.Card) (models.Hand, bool) {
	groups := rankGroups(cards)
	var pairs []models.Rank
	for rank, group := range groups {
		if len(group) >= 2 {
			pairs = append(pairs, rank)
		}
	}
	if len(pairs) < 2 {
		return models.Hand{}, false
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Value() > pairs[j].Value() })

	high, low := pairs[0], pairs[1]
	kickers := othersByRank(cards, 1, high, low)
	best := append(groups[high][:2:2], groups[low][:2]...)
	return models.Hand{
		Type:        models.TwoPair,
		Cards:       append(best, kickers...),
		Kickers:     kickers,
		Description: fmt.Sprintf("Two Pair, %ss and %ss", high.Name(), low.Name()),
	}, true
}

func findPair(cards []models.Card) (models.Hand, bool) {
	groups := rankGroups(cards)
	pair, ok := bestGroupOfSize(groups, 2)
	if !ok {
		return models.Hand{}, false
	}
	kickers := othersByRank(cards, 3, pair)
	return models.Hand{
		Type:        models.Pair,
		Cards:       append(groups[pair][:2:2], kickers...),
		Kickers:     kickers,
		Description: fmt.Sprintf("Pair of %ss", pair.Name()),
	}, true
}

func findHighCard(cards []models.Card) models.Hand {
	n := len(cards)
	if n > 5 {
		n = 5
	}
	return models.Hand{
		Type:        models.HighCard,
		Cards:       cards[:n:n],
		Kickers:     cards[1:n:n],
		Description: fmt.Sprintf("High Card, %s", cards[0].Rank.Name()),
	}
}

func rankGroups(cards []models.Card) map[models.Rank][]models.Card {
	groups := make(map[models.Rank][]models.Card)
	for _, c := range cards {
		groups[c.Rank] = append(groups[c.Rank], c)
	}
	return groups
}

// bestGroupOfSize returns the highest rank with at least size cards.
func bestGroupOfSize(groups map[models.Rank][]models.Card, size int) (models.Rank, bool) {
	var best models.Rank
	for rank, group := range groups {
		if len(group) >= size && (best == "" || rank.Value() > best.Value()) {
			best = rank
		}
	}
	return best, best != ""
}

// othersByRank returns up to n kickers, highest first, excluding the given
// ranks. Callers pass cards already sorted descending.
func othersByRank(cards []models.Card, n int, exclude ...models.Rank) []models.Card {
	out := make([]models.Card, 0, n)
	for _, c := range cards {
		skip := false
		for _, r := range exclude {
			if c.Rank == r {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, c)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

func distinctByRankDesc(cards []models.Card) []models.Card {
	seen := make(map[models.Rank]bool, len(cards))
	out := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		if !seen[c.Rank] {
			seen[c.Rank] = true
			out = append(out, c)
		}
	}
	return out
}

func flushSuitCards(cards []models.Card) ([]models.Card, bool) {
	suits := make(map[models.Suit][]models.Card)
	for _, c := range cards {
		suits[c.Suit] = append(suits[c.Suit], c)
	}
	for _, group := range suits {
		if len(group) >= 5 {
			sort.Slice(group, func(i, j int) bool {
				return group[i].Rank.Value() > group[j].Rank.Value()
			})
			return group, true
		}
	}
	return nil, false
}
