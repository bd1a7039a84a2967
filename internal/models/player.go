package models

// Player is one seat at a table. Chips persist across hands within a room;
// hole cards and betting flags reset when a new hand starts.
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Chips      int64  `json:"chips"`
	HoleCards  []Card `json:"holeCards"`
	IsFolded   bool   `json:"isFolded"`
	CurrentBet int64  `json:"currentBet"`
	IsAllIn    bool   `json:"isAllIn"`

	// TotalContribution is everything the player has put in this hand, across
	// all betting rounds. Side pots are computed from it, not from CurrentBet.
	TotalContribution int64 `json:"totalContribution"`
}

func NewPlayer(id, name string, chips int64) *Player {
	return &Player{ID: id, Name: name, Chips: chips}
}

// ResetForHand clears per-hand state. Chips are untouched.
func (p *Player) ResetForHand() {
	p.HoleCards = nil
	p.IsFolded = false
	p.CurrentBet = 0
	p.IsAllIn = false
	p.TotalContribution = 0
}

// PlaceBet moves up to amount from the stack into the current bet, marking the
// player all-in when the stack is exhausted.
func (p *Player) PlaceBet(amount int64) {
	if amount >= p.Chips {
		amount = p.Chips
		p.IsAllIn = true
	}
	p.Chips -= amount
	p.CurrentBet += amount
	p.TotalContribution += amount
}

// CanAct reports whether the player may still take a betting action this hand.
func (p *Player) CanAct() bool {
	return !p.IsFolded && !p.IsAllIn
}

func (p *Player) clone() *Player {
	c := *p
	c.HoleCards = append([]Card(nil), p.HoleCards...)
	return &c
}
