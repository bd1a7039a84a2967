package ai

import (
	"context"
	"math/rand"
	"time"

	"github.com/as00paf/kpoker/internal/engine"
	"github.com/as00paf/kpoker/internal/models"
)

// Difficulty selects a decision policy for automated opponents.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty falls back to Medium for unknown values.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case Easy, Medium, Hard:
		return Difficulty(s)
	}
	return Medium
}

// DecideAction picks a betting action for the given player after a short
// simulated thinking delay. The state must be a snapshot; the caller applies
// the returned action through the room like any other action. Returns a fold
// if the context is cancelled during the delay.
func DecideAction(ctx context.Context, state *models.GameState, playerID string, difficulty Difficulty) models.BettingAction {
	delay := time.Duration(1000+rand.Intn(1000)) * time.Millisecond
	select {
	case <-ctx.Done():
		return models.Fold()
	case <-time.After(delay):
	}

	player := state.PlayerByID(playerID)
	if player == nil {
		return models.Fold()
	}
	callAmount := state.CurrentMaxBet - player.CurrentBet

	handRank := models.HighCard
	if hand, err := engine.EvaluateHoleCards(player.HoleCards, state.CommunityCards); err == nil {
		handRank = hand.Type
	}

	var action models.BettingAction
	switch difficulty {
	case Easy:
		action = decideEasy(callAmount, state.BigBlind)
	case Hard:
		action = decideHard(callAmount, state.BigBlind, handRank, state.Pot, player.Chips)
	default:
		action = decideMedium(callAmount, state.BigBlind, handRank, player.Chips)
	}
	return clampToLegal(action, state, player)
}

// clampToLegal downgrades illegal choices to the nearest legal action so the
// engine never drops an automated opponent's move and stalls the table.
func clampToLegal(action models.BettingAction, state *models.GameState, player *models.Player) models.BettingAction {
	callAmount := state.CurrentMaxBet - player.CurrentBet

	switch action.Type {
	case models.ActionRaise:
		increment := action.Amount - player.CurrentBet
		minTotal := state.CurrentMaxBet + state.MinRaise
		if action.Amount >= minTotal && increment <= player.Chips {
			return action
		}
		if callAmount > 0 {
			if callAmount <= player.Chips {
				return models.Call()
			}
			return models.AllIn()
		}
		return models.Check()

	case models.ActionCall:
		if callAmount > player.Chips {
			return models.AllIn()
		}
		return action

	case models.ActionCheck:
		if callAmount > 0 {
			if callAmount <= player.Chips {
				return models.Call()
			}
			return models.AllIn()
		}
		return action
	}
	return action
}

// Easy plays almost blind: checks for free, calls anything cheap, and folds
// to pressure most of the time.
func decideEasy(callAmount, bigBlind int64) models.BettingAction {
	switch {
	case callAmount == 0:
		return models.Check()
	case callAmount <= bigBlind:
		return models.Call()
	default:
		if rand.Intn(11) > 7 {
			return models.Call()
		}
		return models.Fold()
	}
}

// Medium looks at made-hand strength: raises strong hands when unbet, calls
// modest bets with a pair or better.
func decideMedium(callAmount, bigBlind int64, handRank models.HandType, chips int64) models.BettingAction {
	switch {
	case handRank >= models.ThreeOfAKind:
		if callAmount == 0 && chips >= bigBlind*2 {
			return models.Raise(bigBlind * 2)
		}
		if callAmount <= chips {
			return models.Call()
		}
		return models.AllIn()
	case handRank >= models.Pair:
		if callAmount <= bigBlind*3 && callAmount <= chips {
			return models.Call()
		}
		if callAmount == 0 {
			return models.Check()
		}
		return models.Fold()
	default:
		if callAmount == 0 {
			return models.Check()
		}
		return models.Fold()
	}
}

// Hard is pot-aware and bluffs occasionally when the action checks to it.
func decideHard(callAmount, bigBlind int64, handRank models.HandType, pot, chips int64) models.BettingAction {
	switch {
	case handRank >= models.Flush:
		raiseTo := bigBlind * 4
		if callAmount*2 > raiseTo {
			raiseTo = callAmount * 2
		}
		if pot/2 > raiseTo {
			raiseTo = pot / 2
		}
		if chips >= raiseTo-(callAmount+bigBlind) {
			return models.Raise(raiseTo)
		}
		return models.AllIn()
	case handRank >= models.ThreeOfAKind:
		if callAmount <= pot && callAmount <= chips {
			return models.Call()
		}
		if callAmount == 0 {
			return models.Check()
		}
		return models.Fold()
	case handRank >= models.Pair:
		if callAmount <= pot/3 && callAmount <= chips {
			return models.Call()
		}
		if callAmount == 0 {
			return models.Check()
		}
		return models.Fold()
	default:
		if callAmount == 0 && rand.Intn(101) > 85 && chips >= bigBlind*3 {
			return models.Raise(bigBlind * 3)
		}
		if callAmount == 0 {
			return models.Check()
		}
		return models.Fold()
	}
}
