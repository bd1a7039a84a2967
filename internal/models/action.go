package models

import (
	"encoding/json"
	"fmt"
)

// ActionType tags a betting action on the wire.
type ActionType string

const (
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionRaise ActionType = "raise"
	ActionFold  ActionType = "fold"
	ActionAllIn ActionType = "all_in"
)

// BettingAction is a player's move. Amount is only meaningful for raises,
// where it is the TOTAL bet the player wants to be at for the round, not the
// increment on top of the current bet.
type BettingAction struct {
	Type   ActionType `json:"type"`
	Amount int64      `json:"amount,omitempty"`
}

func Check() BettingAction { return BettingAction{Type: ActionCheck} }
func Call() BettingAction  { return BettingAction{Type: ActionCall} }
func Fold() BettingAction  { return BettingAction{Type: ActionFold} }
func AllIn() BettingAction { return BettingAction{Type: ActionAllIn} }

func Raise(total int64) BettingAction {
	return BettingAction{Type: ActionRaise, Amount: total}
}

// ParseAction decodes a tagged action object and rejects unknown tags.
func ParseAction(raw json.RawMessage) (BettingAction, error) {
	var a BettingAction
	if err := json.Unmarshal(raw, &a); err != nil {
		return BettingAction{}, fmt.Errorf("decoding action: %w", err)
	}
	switch a.Type {
	case ActionCheck, ActionCall, ActionRaise, ActionFold, ActionAllIn:
		return a, nil
	default:
		return BettingAction{}, fmt.Errorf("unknown action type %q", a.Type)
	}
}

func (a BettingAction) String() string {
	if a.Type == ActionRaise {
		return fmt.Sprintf("raise(%d)", a.Amount)
	}
	return string(a.Type)
}
