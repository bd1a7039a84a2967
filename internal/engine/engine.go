package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/as00paf/kpoker/internal/models"
)

const maxPlayers = 10

var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrNotEnoughPlayers = errors.New("need at least 2 players with chips")
	ErrHandInProgress   = errors.New("hand already in progress")
	ErrTableFull        = errors.New("table is full")
	ErrDuplicatePlayer  = errors.New("player already seated")
)

// GameEngine owns one table's authoritative state and drives the betting
// state machine. It is not safe for concurrent use; the room layer serializes
// access.
type GameEngine struct {
	state *models.GameState
	deck  *models.Deck
	now   func() time.Time
}

func NewGameEngine() *GameEngine {
	return &GameEngine{
		state: models.NewGameState(),
		deck:  models.NewDeck(),
		now:   time.Now,
	}
}

// State exposes the live state for the owning room. Mutating it outside the
// engine breaks the invariants; use Snapshot for anything leaving the lock.
func (e *GameEngine) State() *models.GameState {
	return e.state
}

// Snapshot returns a deep copy safe to serialize without the room lock.
func (e *GameEngine) Snapshot() *models.GameState {
	return e.state.Clone()
}

// AddPlayer seats a player. Legal only while waiting or between hands.
func (e *GameEngine) AddPlayer(id, name string, chips int64) error {
	s := e.state
	if s.InHand() {
		return ErrHandInProgress
	}
	if len(s.Players) >= maxPlayers {
		return ErrTableFull
	}
	if s.PlayerByID(id) != nil {
		return ErrDuplicatePlayer
	}
	s.Players = append(s.Players, models.NewPlayer(id, name, chips))
	return nil
}

// RemovePlayer unseats a player. If it was their turn they are folded first
// so the betting round can finish without them.
func (e *GameEngine) RemovePlayer(id string) error {
	s := e.state
	for i, p := range s.Players {
		if p.ID != id {
			continue
		}
		if s.InHand() && !p.IsFolded {
			p.IsFolded = true
			if s.ActivePlayerIndex == i {
				s.Acted[id] = true
				if err := e.advanceTurn(); err != nil {
					return err
				}
			} else if e.notFoldedCount() <= 1 {
				e.collectBets()
				if err := e.settle(); err != nil {
					return err
				}
			}
		}
		// Re-find the seat: settlement does not move seats, but be safe.
		for j, q := range s.Players {
			if q.ID == id {
				s.Players = append(s.Players[:j], s.Players[j+1:]...)
				e.fixIndexesAfterRemoval(j)
				break
			}
		}
		return nil
	}
	return nil
}

func (e *GameEngine) fixIndexesAfterRemoval(removed int) {
	s := e.state
	if s.DealerIndex >= removed && s.DealerIndex > 0 {
		s.DealerIndex--
	}
	if s.ActivePlayerIndex > removed {
		s.ActivePlayerIndex--
	} else if s.ActivePlayerIndex == removed {
		s.ActivePlayerIndex = -1
	}
	if s.LastRaiserIndex >= removed {
		s.LastRaiserIndex--
	}
}

// StartNewHand deals a fresh hand. Players with no chips stay seated but are
// folded up front and receive no cards.
func (e *GameEngine) StartNewHand() error {
	s := e.state
	if s.InHand() {
		return ErrHandInProgress
	}
	if e.fundedCount() < 2 {
		return ErrNotEnoughPlayers
	}

	e.deck = models.NewDeck()
	s.CommunityCards = nil
	s.Pot = 0
	s.Stage = models.StagePreFlop
	s.CurrentMaxBet = 0
	s.MinRaise = s.BigBlind
	s.LastRaiserIndex = -1
	s.LastResult = nil
	s.NextHandAt = time.Time{}
	s.Acted = make(map[string]bool)

	for _, p := range s.Players {
		p.ResetForHand()
		if p.Chips == 0 {
			p.IsFolded = true
			continue
		}
		for i := 0; i < 2; i++ {
			card, err := e.deck.Draw()
			if err != nil {
				return fmt.Errorf("dealing hole cards: %w", err)
			}
			p.HoleCards = append(p.HoleCards, card)
		}
	}

	s.DealerIndex = e.nextFunded(s.DealerIndex)
	e.postBlinds()

	// Blinds can put everyone all-in at tiny stacks.
	if s.ActivePlayerIndex == -1 {
		e.collectBets()
		return e.runOutAndSettle()
	}
	return nil
}

// postBlinds assigns blinds relative to the dealer. Heads-up the dealer posts
// the small blind and acts first pre-flop; with three or more the seats after
// the dealer post and the seat after the big blind opens.
func (e *GameEngine) postBlinds() {
	s := e.state

	var sb, bb, first int
	if e.fundedCount() == 2 {
		sb = s.DealerIndex
		bb = e.nextFunded(sb)
		first = sb
	} else {
		sb = e.nextFunded(s.DealerIndex)
		bb = e.nextFunded(sb)
		first = e.nextFunded(bb)
	}

	s.Players[sb].PlaceBet(s.SmallBlind)
	s.Players[bb].PlaceBet(s.BigBlind)

	s.CurrentMaxBet = s.BigBlind
	s.MinRaise = s.BigBlind
	s.LastRaiserIndex = bb
	e.setActive(e.firstCanActFrom(first))
}

func (e *GameEngine) setActive(idx int) {
	e.state.ActivePlayerIndex = idx
	if idx >= 0 {
		e.state.TurnStartedAt = e.now()
	}
}

// HandleAction applies one betting action. Out-of-turn callers get
// ErrNotYourTurn; actions that are illegal for the in-turn player (checking
// behind a bet, an undersized raise) are dropped without a state change and
// the turn stays with them.
func (e *GameEngine) HandleAction(playerID string, action models.BettingAction) error {
	s := e.state
	if !s.InHand() {
		return ErrNotYourTurn
	}
	idx := -1
	for i, p := range s.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 || idx != s.ActivePlayerIndex {
		return ErrNotYourTurn
	}
	p := s.Players[idx]

	switch action.Type {
	case models.ActionFold:
		p.IsFolded = true

	case models.ActionCheck:
		if p.CurrentBet < s.CurrentMaxBet {
			return nil
		}

	case models.ActionCall:
		p.PlaceBet(s.CurrentMaxBet - p.CurrentBet)

	case models.ActionRaise:
		total := action.Amount
		increment := total - p.CurrentBet
		if total < s.CurrentMaxBet+s.MinRaise || increment <= 0 || increment > p.Chips {
			return nil
		}
		s.MinRaise = total - s.CurrentMaxBet
		p.PlaceBet(increment)
		s.CurrentMaxBet = total
		s.LastRaiserIndex = idx

	case models.ActionAllIn:
		total := p.CurrentBet + p.Chips
		p.PlaceBet(p.Chips)
		if total > s.CurrentMaxBet {
			// A short all-in never shrinks the reopen increment.
			if diff := total - s.CurrentMaxBet; diff > s.MinRaise {
				s.MinRaise = diff
			}
			s.CurrentMaxBet = total
			s.LastRaiserIndex = idx
		}

	default:
		return nil
	}

	s.Acted[playerID] = true
	return e.advanceTurn()
}

// CheckTimeouts auto-acts for a player whose turn timer expired: check when
// their bet matches the max, fold otherwise. Reports whether it acted.
func (e *GameEngine) CheckTimeouts(now time.Time) (bool, error) {
	s := e.state
	p := s.ActivePlayer()
	if p == nil || now.Sub(s.TurnStartedAt) < s.TurnTimeout {
		return false, nil
	}
	action := models.Fold()
	if p.CurrentBet == s.CurrentMaxBet {
		action = models.Check()
	}
	return true, e.HandleAction(p.ID, action)
}

func (e *GameEngine) advanceTurn() error {
	s := e.state

	if e.notFoldedCount() <= 1 {
		e.collectBets()
		return e.settle()
	}

	if e.bettingRoundOver() {
		e.collectBets()
		if e.canActCount() <= 1 {
			// No further betting is possible; run the board out.
			return e.runOutAndSettle()
		}
		return e.nextStage()
	}

	e.setActive(e.firstCanActFrom((s.ActivePlayerIndex + 1) % len(s.Players)))
	return nil
}

// bettingRoundOver: every player who can still act has acted this round, and
// every non-folded player is either all-in or matched the max bet.
func (e *GameEngine) bettingRoundOver() bool {
	s := e.state
	for _, p := range s.Players {
		if p.IsFolded {
			continue
		}
		if p.CanAct() && !s.Acted[p.ID] {
			return false
		}
		if !p.IsAllIn && p.CurrentBet != s.CurrentMaxBet {
			return false
		}
	}
	return true
}

func (e *GameEngine) collectBets() {
	s := e.state
	for _, p := range s.Players {
		s.Pot += p.CurrentBet
		p.CurrentBet = 0
	}
	s.CurrentMaxBet = 0
	s.MinRaise = s.BigBlind
	s.LastRaiserIndex = -1
	s.Acted = make(map[string]bool)
}

func (e *GameEngine) nextStage() error {
	s := e.state
	switch s.Stage {
	case models.StagePreFlop:
		if err := e.dealBoard(3); err != nil {
			return err
		}
		s.Stage = models.StageFlop
	case models.StageFlop:
		if err := e.dealBoard(1); err != nil {
			return err
		}
		s.Stage = models.StageTurn
	case models.StageTurn:
		if err := e.dealBoard(1); err != nil {
			return err
		}
		s.Stage = models.StageRiver
	case models.StageRiver:
		return e.settle()
	default:
		return nil
	}

	first := e.firstCanActFrom((s.DealerIndex + 1) % len(s.Players))
	if first == -1 {
		return e.runOutAndSettle()
	}
	e.setActive(first)
	return nil
}

func (e *GameEngine) dealBoard(n int) error {
	for i := 0; i < n; i++ {
		card, err := e.deck.Draw()
		if err != nil {
			return fmt.Errorf("dealing board: %w", err)
		}
		e.state.CommunityCards = append(e.state.CommunityCards, card)
	}
	return nil
}

// runOutAndSettle deals any remaining board cards and settles immediately.
// Used when betting is finished for the hand because at most one player can
// still act.
func (e *GameEngine) runOutAndSettle() error {
	s := e.state
	for len(s.CommunityCards) < 5 {
		if err := e.dealBoard(1); err != nil {
			return err
		}
	}
	s.Stage = models.StageRiver
	return e.settle()
}

// settle computes pots from per-hand contributions, evaluates the remaining
// hands, and pays the winners. Callers must collect outstanding round bets
// first.
func (e *GameEngine) settle() error {
	s := e.state
	defer func() {
		s.Stage = models.StageShowdown
		s.ActivePlayerIndex = -1
	}()

	var contenders []*models.Player
	for _, p := range s.Players {
		if !p.IsFolded {
			contenders = append(contenders, p)
		}
	}

	result := &models.HandResult{AmountsWon: make(map[string]int64)}

	if len(contenders) == 1 {
		winner := contenders[0]
		winner.Chips += s.Pot
		result.WinnerIDs = []string{winner.ID}
		result.AmountsWon[winner.ID] = s.Pot
		s.Pot = 0
		s.LastResult = result
		return nil
	}
	if len(contenders) == 0 {
		s.Pot = 0
		s.LastResult = result
		return nil
	}

	hands := make(map[string]models.Hand, len(contenders))
	result.PlayerHands = make(map[string]models.Hand, len(contenders))
	for _, p := range contenders {
		hand, err := EvaluateHoleCards(p.HoleCards, s.CommunityCards)
		if err != nil {
			return fmt.Errorf("evaluating %s: %w", p.ID, err)
		}
		hands[p.ID] = hand
		result.PlayerHands[p.ID] = hand
	}

	pots := CalculatePots(s.Players)
	won := Distribute(pots, hands, e.seatOrderFromDealer())

	best := bestEligible(idsOf(contenders), hands)
	result.WinnerIDs = sortBySeatOrder(best, e.seatOrderFromDealer())
	var distributed int64
	for id, amount := range won {
		s.PlayerByID(id).Chips += amount
		result.AmountsWon[id] = amount
		distributed += amount
	}
	// Dead money from players who left mid-hand is not covered by any seated
	// contribution level; it goes to the lead winner so no chips vanish.
	if leftover := s.Pot - distributed; leftover > 0 && len(result.WinnerIDs) > 0 {
		lead := result.WinnerIDs[0]
		s.PlayerByID(lead).Chips += leftover
		result.AmountsWon[lead] += leftover
	}
	s.Pot = 0
	s.LastResult = result
	return nil
}

// seatOrderFromDealer lists player ids starting at the seat after the dealer.
// Odd chips from split pots go to the earliest seat in this order.
func (e *GameEngine) seatOrderFromDealer() []string {
	s := e.state
	n := len(s.Players)
	order := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		order = append(order, s.Players[(s.DealerIndex+i)%n].ID)
	}
	return order
}

func idsOf(players []*models.Player) []string {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

func (e *GameEngine) notFoldedCount() int {
	n := 0
	for _, p := range e.state.Players {
		if !p.IsFolded {
			n++
		}
	}
	return n
}

func (e *GameEngine) canActCount() int {
	n := 0
	for _, p := range e.state.Players {
		if p.CanAct() {
			n++
		}
	}
	return n
}

func (e *GameEngine) fundedCount() int {
	n := 0
	for _, p := range e.state.Players {
		if p.Chips > 0 || p.CurrentBet > 0 {
			n++
		}
	}
	return n
}

// nextFunded returns the next seat after from holding chips, wrapping. Seats
// that posted their whole stack as a blind still count.
func (e *GameEngine) nextFunded(from int) int {
	s := e.state
	n := len(s.Players)
	if from < 0 {
		from = n - 1
	}
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		p := s.Players[idx]
		if p.Chips > 0 || p.CurrentBet > 0 {
			return idx
		}
	}
	return from
}

// firstCanActFrom scans from the given seat inclusive for a player who can
// still bet, or -1 when everyone is folded or all-in.
func (e *GameEngine) firstCanActFrom(from int) int {
	s := e.state
	n := len(s.Players)
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if s.Players[idx].CanAct() {
			return idx
		}
	}
	return -1
}
