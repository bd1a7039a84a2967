package room

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/as00paf/kpoker/internal/ai"
	"github.com/as00paf/kpoker/internal/engine"
	"github.com/as00paf/kpoker/internal/models"
)

type fakeSession struct {
	updates chan models.GameMessage
}

func newFakeSession() *fakeSession {
	return &fakeSession{updates: make(chan models.GameMessage, 64)}
}

func (f *fakeSession) Send(msg models.GameMessage) error {
	select {
	case f.updates <- msg:
	default:
	}
	return nil
}

// waitForState drains updates until the predicate matches or the deadline
// passes.
func waitForState(t *testing.T, f *fakeSession, match func(*models.GameState) bool) *models.GameState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-f.updates:
			if msg.Type == models.MsgStateUpdate && msg.State != nil && match(msg.State) {
				return msg.State
			}
		case <-deadline:
			t.Fatal("timed out waiting for state update")
			return nil
		}
	}
}

type recordingBankroll struct {
	mu     sync.Mutex
	deltas map[string]int64
}

func (r *recordingBankroll) UpdateBankroll(playerID string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deltas == nil {
		r.deltas = make(map[string]int64)
	}
	r.deltas[playerID] += delta
	return nil
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	r := New("test table", &recordingBankroll{}, nil, nil, nil)
	t.Cleanup(r.Close)
	return r
}

func TestJoinAndStartBroadcastsState(t *testing.T) {
	r := newTestRoom(t)
	s1 := newFakeSession()
	s2 := newFakeSession()

	require.NoError(t, r.Join("p1", "Alice", 1000, s1))
	require.NoError(t, r.Join("p2", "Bob", 1000, s2))
	require.NoError(t, r.StartGame())

	state := waitForState(t, s1, func(s *models.GameState) bool {
		return s.Stage == models.StagePreFlop
	})
	assert.Len(t, state.Players, 2)
	assert.EqualValues(t, 0, state.Pot)

	// Alice sees her own cards and not Bob's.
	assert.Len(t, state.PlayerByID("p1").HoleCards, 2)
	assert.Empty(t, state.PlayerByID("p2").HoleCards)
}

func TestOutOfTurnActionReturnsError(t *testing.T) {
	r := newTestRoom(t)
	s1 := newFakeSession()
	s2 := newFakeSession()

	require.NoError(t, r.Join("p1", "Alice", 1000, s1))
	require.NoError(t, r.Join("p2", "Bob", 1000, s2))
	require.NoError(t, r.StartGame())

	// Heads-up the dealer acts first; p2 is out of turn.
	err := r.HandleAction("p2", models.Fold())
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)

	err = r.HandleAction("stranger", models.Fold())
	assert.ErrorIs(t, err, ErrNotSeated)
}

func TestActionsFlowThroughToBroadcast(t *testing.T) {
	r := newTestRoom(t)
	s1 := newFakeSession()
	s2 := newFakeSession()

	require.NoError(t, r.Join("p1", "Alice", 1000, s1))
	require.NoError(t, r.Join("p2", "Bob", 1000, s2))
	require.NoError(t, r.StartGame())

	require.NoError(t, r.HandleAction("p1", models.Call()))
	require.NoError(t, r.HandleAction("p2", models.Fold()))

	state := waitForState(t, s2, func(s *models.GameState) bool {
		return s.Stage == models.StageShowdown
	})
	assert.EqualValues(t, 1020, state.PlayerByID("p1").Chips)
	assert.EqualValues(t, 980, state.PlayerByID("p2").Chips)
	assert.False(t, state.NextHandAt.IsZero(), "next hand should be scheduled")
}

func TestLeaveDuringTurnFoldsPlayer(t *testing.T) {
	r := newTestRoom(t)
	s1 := newFakeSession()
	s2 := newFakeSession()

	require.NoError(t, r.Join("p1", "Alice", 1000, s1))
	require.NoError(t, r.Join("p2", "Bob", 1000, s2))
	require.NoError(t, r.StartGame())

	// p1 is the active player; leaving must fold them and settle the hand.
	r.Leave("p1")

	state := waitForState(t, s2, func(s *models.GameState) bool {
		return s.Stage == models.StageShowdown
	})
	assert.Nil(t, state.PlayerByID("p1"))
	assert.EqualValues(t, 1010, state.PlayerByID("p2").Chips)
}

func TestRoomClosesWhenLastHumanLeaves(t *testing.T) {
	r := New("test table", &recordingBankroll{}, nil, nil, nil)
	s1 := newFakeSession()

	require.NoError(t, r.Join("p1", "Alice", 1000, s1))
	r.Leave("p1")

	err := r.Join("p2", "Bob", 1000, newFakeSession())
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestClosedRoomDropsOutOfLobby(t *testing.T) {
	reg := NewRegistry(&recordingBankroll{}, nil, nil)
	defer reg.CloseAll()

	r := reg.CreateRoom("Main")
	require.NoError(t, r.Join("p1", "Alice", 1000, newFakeSession()))
	require.Len(t, reg.List(), 1)

	// The last human leaving closes the room, which must deregister it.
	r.Leave("p1")

	assert.Empty(t, reg.List())
	_, err := reg.Get(r.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistryCreateAndRemove(t *testing.T) {
	reg := NewRegistry(&recordingBankroll{}, nil, nil)
	defer reg.CloseAll()

	r := reg.CreateRoom("Main")
	got, err := reg.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	listings := reg.List()
	require.Len(t, listings, 1)
	assert.Equal(t, "Main", listings[0].Name)
	assert.False(t, listings[0].IsStarted)

	reg.Remove(r.ID)
	_, err = reg.Get(r.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSinglePlayerRoomSeatsThreeBots(t *testing.T) {
	reg := NewRegistry(&recordingBankroll{}, nil, nil)
	defer reg.CloseAll()

	r, err := reg.CreateSinglePlayerRoom("Alice", ai.Easy)
	require.NoError(t, err)

	info := r.Info()
	assert.Equal(t, 3, info.PlayerCount)
	assert.Equal(t, "Alice's table", info.Name)
}

func TestStateUpdatesDeliveredInOrder(t *testing.T) {
	r := newTestRoom(t)
	s1 := newFakeSession()
	s2 := newFakeSession()

	require.NoError(t, r.Join("p1", "Alice", 1000, s1))
	require.NoError(t, r.Join("p2", "Bob", 1000, s2))
	require.NoError(t, r.StartGame())
	require.NoError(t, r.HandleAction("p1", models.Call()))
	require.NoError(t, r.HandleAction("p2", models.Fold()))

	// Broadcasts are enqueued under the room lock, so by the time the fold
	// returns every update is buffered. The showdown must land last; a later
	// snapshot from an earlier stage would leave the client rendering stale
	// state.
	var stages []models.Stage
	for drained := false; !drained; {
		select {
		case msg := <-s1.updates:
			if msg.Type == models.MsgStateUpdate && msg.State != nil {
				stages = append(stages, msg.State.Stage)
			}
		default:
			drained = true
		}
	}
	require.NotEmpty(t, stages)
	assert.Equal(t, models.StageShowdown, stages[len(stages)-1])
	for i := 1; i < len(stages); i++ {
		if stages[i-1] == models.StageShowdown {
			assert.Equal(t, models.StageShowdown, stages[i], "pre-showdown state after showdown")
		}
	}
}

func TestBankrollDeltasReportedAfterHand(t *testing.T) {
	bankroll := &recordingBankroll{}
	r := New("test table", bankroll, nil, nil, nil)
	t.Cleanup(r.Close)
	s1 := newFakeSession()
	s2 := newFakeSession()

	require.NoError(t, r.Join("p1", "Alice", 1000, s1))
	require.NoError(t, r.Join("p2", "Bob", 1000, s2))
	require.NoError(t, r.StartGame())

	require.NoError(t, r.HandleAction("p1", models.Call()))
	require.NoError(t, r.HandleAction("p2", models.Fold()))

	assert.Eventually(t, func() bool {
		bankroll.mu.Lock()
		defer bankroll.mu.Unlock()
		return bankroll.deltas["p1"] == 20 && bankroll.deltas["p2"] == -20
	}, 2*time.Second, 10*time.Millisecond)
}
