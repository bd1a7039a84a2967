package models

import "time"

// Stage is the phase of the current hand.
type Stage string

const (
	StageWaiting  Stage = "WAITING"
	StagePreFlop  Stage = "PRE_FLOP"
	StageFlop     Stage = "FLOP"
	StageTurn     Stage = "TURN"
	StageRiver    Stage = "RIVER"
	StageShowdown Stage = "SHOWDOWN"
)

const (
	DefaultSmallBlind  int64 = 10
	DefaultBigBlind    int64 = 20
	DefaultTurnTimeout       = 30 * time.Second
)

// GameState is the full table state for one room. The engine mutates it in
// place; the room layer snapshots it per viewer before broadcasting.
type GameState struct {
	Players           []*Player   `json:"players"`
	CommunityCards    []Card      `json:"communityCards"`
	Pot               int64       `json:"pot"`
	DealerIndex       int         `json:"dealerIndex"`
	ActivePlayerIndex int         `json:"activePlayerIndex"`
	Stage             Stage       `json:"stage"`
	SmallBlind        int64       `json:"smallBlind"`
	BigBlind          int64       `json:"bigBlind"`
	CurrentMaxBet     int64       `json:"currentMaxBet"`
	MinRaise          int64       `json:"minRaise"`
	LastRaiserIndex   int         `json:"lastRaiserIndex"`
	LastResult        *HandResult `json:"lastResult,omitempty"`

	// Acted tracks who has taken at least one action this betting round.
	// Cleared when the stage advances or a full raise reopens the round.
	Acted map[string]bool `json:"-"`

	TurnStartedAt time.Time     `json:"turnStartedAt"`
	TurnTimeout   time.Duration `json:"-"`
	NextHandAt    time.Time     `json:"nextHandAt,omitempty"`
}

func NewGameState() *GameState {
	return &GameState{
		Players:           make([]*Player, 0, 10),
		DealerIndex:       -1,
		ActivePlayerIndex: -1,
		Stage:             StageWaiting,
		SmallBlind:        DefaultSmallBlind,
		BigBlind:          DefaultBigBlind,
		LastRaiserIndex:   -1,
		Acted:             make(map[string]bool),
		TurnTimeout:       DefaultTurnTimeout,
	}
}

// ActivePlayer returns the player whose turn it is, or nil outside a betting
// round.
func (s *GameState) ActivePlayer() *Player {
	if s.ActivePlayerIndex < 0 || s.ActivePlayerIndex >= len(s.Players) {
		return nil
	}
	return s.Players[s.ActivePlayerIndex]
}

// PlayerByID returns the seated player with the given id, or nil.
func (s *GameState) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// InHand reports whether a hand is currently being played.
func (s *GameState) InHand() bool {
	switch s.Stage {
	case StagePreFlop, StageFlop, StageTurn, StageRiver:
		return true
	}
	return false
}

// Clone deep-copies the state so a snapshot can be redacted and serialized
// without holding the room lock.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		c.Players[i] = p.clone()
	}
	c.CommunityCards = append([]Card(nil), s.CommunityCards...)
	c.Acted = nil
	if s.LastResult != nil {
		r := *s.LastResult
		c.LastResult = &r
	}
	return &c
}

// Redact hides hole cards that viewerID is not entitled to see. Everyone's
// cards are revealed at showdown. Call on a Clone, never on the live state.
func (s *GameState) Redact(viewerID string) {
	if s.Stage == StageShowdown {
		return
	}
	for _, p := range s.Players {
		if p.ID != viewerID {
			p.HoleCards = nil
		}
	}
}
