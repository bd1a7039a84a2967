package models

// HandType is the 10-level poker hand ranking, low to high.
type HandType int

const (
	HighCard HandType = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var handTypeNames = map[HandType]string{
	HighCard:      "High Card",
	Pair:          "Pair",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
	RoyalFlush:    "Royal Flush",
}

func (ht HandType) String() string {
	return handTypeNames[ht]
}

// Hand is the best 5-card classification of a set of cards. Cards holds
// exactly the five cards making the hand, ordered by importance; Kickers
// holds the remaining tie-break cards in descending rank order.
type Hand struct {
	Type        HandType `json:"type"`
	Cards       []Card   `json:"cards"`
	Kickers     []Card   `json:"kickers,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Compare returns a negative number if h ranks below other, zero if they tie,
// and a positive number otherwise. Suits never matter: two hands of equal
// type and ranks compare equal.
func (h Hand) Compare(other Hand) int {
	if h.Type != other.Type {
		return int(h.Type) - int(other.Type)
	}
	for i := range h.Cards {
		if i >= len(other.Cards) {
			break
		}
		if d := h.Cards[i].Rank.Value() - other.Cards[i].Rank.Value(); d != 0 {
			return d
		}
	}
	for i := range h.Kickers {
		if i >= len(other.Kickers) {
			break
		}
		if d := h.Kickers[i].Rank.Value() - other.Kickers[i].Rank.Value(); d != 0 {
			return d
		}
	}
	return 0
}

// HandResult records the outcome of a settled hand, kept on the game state
// until the next hand starts so clients can show the showdown.
type HandResult struct {
	WinnerIDs   []string         `json:"winnerIds"`
	AmountsWon  map[string]int64 `json:"amountsWon"`
	PlayerHands map[string]Hand  `json:"playerHands,omitempty"`
}
