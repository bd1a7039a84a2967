package room

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/as00paf/kpoker/internal/ai"
	"github.com/as00paf/kpoker/internal/engine"
	"github.com/as00paf/kpoker/internal/models"
)

const (
	tickInterval  = time.Second
	nextHandDelay = 5 * time.Second
	defaultChips  = int64(1000)
)

var (
	ErrRoomClosed = errors.New("room is closed")
	ErrNotSeated  = errors.New("player is not in this room")
)

// Session is the transport handle for one connected player. Send is called
// with the room lock held, so it must enqueue without blocking and fail fast;
// failures are swallowed by the broadcast.
type Session interface {
	Send(msg models.GameMessage) error
}

// BankrollStore receives per-player chip deltas after each hand. Calls are
// asynchronous and best-effort.
type BankrollStore interface {
	UpdateBankroll(playerID string, delta int64) error
}

// HistoryPublisher receives settled hand results, best-effort.
type HistoryPublisher interface {
	PublishHandResult(ctx context.Context, roomID string, result *models.HandResult)
}

// Room wraps one game engine behind a single mutex. Every mutation happens
// under mu; the bot thinking delay, the next-hand wait, and the socket writes
// happen outside it. Broadcasts only enqueue onto session buffers, so they
// stay under the lock and clients see states in mutation order.
type Room struct {
	ID   string
	Name string

	mu       sync.Mutex
	eng      *engine.GameEngine
	sessions map[string]Session       // player id -> transport
	bots     map[string]ai.Difficulty // player id -> policy
	started  bool
	closed   bool

	// handStartChips is captured when a hand begins so settlement can report
	// net deltas to the bankroll store.
	handStartChips map[string]int64

	// pendingBot is the bot whose decision goroutine is in flight, guarding
	// against double dispatch from the ticker.
	pendingBot string

	bankroll BankrollStore
	history  HistoryPublisher
	onChange func()
	onClose  func(roomID string)

	ctx    context.Context
	cancel context.CancelFunc
	log    *logrus.Entry
}

// New creates a room and starts its timeout ticker. onChange is called after
// membership or start-state changes so the lobby list can be re-broadcast;
// onClose is called once when the room shuts down so its owner can drop it
// from the listing.
func New(name string, bankroll BankrollStore, history HistoryPublisher, onChange func(), onClose func(roomID string)) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Room{
		ID:             uuid.NewString(),
		Name:           name,
		eng:            engine.NewGameEngine(),
		sessions:       make(map[string]Session),
		bots:           make(map[string]ai.Difficulty),
		handStartChips: make(map[string]int64),
		bankroll:       bankroll,
		history:        history,
		onChange:       onChange,
		onClose:        onClose,
		ctx:            ctx,
		cancel:         cancel,
	}
	r.log = logrus.WithFields(logrus.Fields{"room": r.ID, "name": name})
	go r.tickLoop()
	return r
}

func (r *Room) tickLoop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case now := <-ticker.C:
			r.mu.Lock()
			if r.closed {
				r.mu.Unlock()
				return
			}
			acted, err := r.eng.CheckTimeouts(now)
			if err != nil {
				r.log.WithError(err).Error("timeout auto-action failed")
			}
			if acted {
				r.log.Debug("turn timed out, auto-acted")
				r.afterMutation()
			}
			r.mu.Unlock()
		}
	}
}

// Join seats a human player. A nil session is allowed for tests.
func (r *Room) Join(playerID, name string, chips int64, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	if err := r.eng.AddPlayer(playerID, name, chips); err != nil {
		return err
	}
	if s != nil {
		r.sessions[playerID] = s
	}
	r.log.WithFields(logrus.Fields{"player": playerID, "chips": chips}).Info("player joined")
	r.afterMutation()
	r.notifyChange()
	return nil
}

// AddBot seats an automated opponent.
func (r *Room) AddBot(name string, difficulty ai.Difficulty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	id := "bot-" + uuid.NewString()
	if err := r.eng.AddPlayer(id, name, defaultChips); err != nil {
		return err
	}
	r.bots[id] = difficulty
	r.afterMutation()
	return nil
}

// Leave folds the player if it is their turn, removes them, and closes the
// room when no humans remain.
func (r *Room) Leave(playerID string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, playerID)
	if err := r.eng.RemovePlayer(playerID); err != nil {
		r.log.WithError(err).WithField("player", playerID).Error("removing player")
	}
	r.log.WithField("player", playerID).Info("player left")
	empty := len(r.sessions) == 0
	if !empty {
		r.afterMutation()
	}
	r.mu.Unlock()

	r.notifyChange()
	if empty {
		r.Close()
	}
}

// StartGame begins the first hand.
func (r *Room) StartGame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	if err := r.startHand(); err != nil {
		return err
	}
	r.started = true
	r.afterMutation()
	r.notifyChange()
	return nil
}

// HandleAction applies a betting action from a player. Out-of-turn actions
// surface engine.ErrNotYourTurn so the transport can tell the offender.
func (r *Room) HandleAction(playerID string, action models.BettingAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	if r.eng.State().PlayerByID(playerID) == nil {
		return ErrNotSeated
	}
	if err := r.eng.HandleAction(playerID, action); err != nil {
		return err
	}
	r.afterMutation()
	return nil
}

// Close cancels the ticker, detaches all sessions, and deregisters the room.
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.sessions = make(map[string]Session)
	r.mu.Unlock()
	r.cancel()
	r.log.Info("room closed")
	if r.onClose != nil {
		r.onClose(r.ID)
	}
}

// Info returns a lobby listing entry.
func (r *Room) Info() models.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.RoomInfo{
		ID:          r.ID,
		Name:        r.Name,
		PlayerCount: len(r.eng.State().Players),
		IsStarted:   r.started,
	}
}

// Snapshot returns a redacted state copy for one viewer.
func (r *Room) Snapshot(viewerID string) *models.GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.eng.Snapshot()
	snap.Redact(viewerID)
	return snap
}

func (r *Room) startHand() error {
	if err := r.eng.StartNewHand(); err != nil {
		return err
	}
	r.handStartChips = make(map[string]int64)
	for _, p := range r.eng.State().Players {
		r.handStartChips[p.ID] = p.Chips + p.CurrentBet
	}
	return nil
}

// afterMutation runs under the lock after every engine change: broadcast,
// schedule the next hand after a showdown, and kick the bot whose turn it is.
func (r *Room) afterMutation() {
	state := r.eng.State()
	if state.Stage == models.StageShowdown && r.started && state.NextHandAt.IsZero() {
		// scheduleNextHand broadcasts once the restart time is stamped.
		r.scheduleNextHand()
		return
	}
	r.broadcast()
	r.maybeDispatchBot()
}

// broadcast fans a per-viewer redacted snapshot out to every session. Sends
// run under the lock so successive states arrive in mutation order; Session
// implementations enqueue without blocking, and a failed send never affects
// the others.
func (r *Room) broadcast() {
	for playerID, s := range r.sessions {
		snap := r.eng.Snapshot()
		snap.Redact(playerID)
		if err := s.Send(models.StateUpdate(snap)); err != nil {
			r.log.WithError(err).Debug("dropping state update")
		}
	}
}

// scheduleNextHand stamps the restart time, reports bankroll deltas, emits
// history, and arranges the next hand without holding the lock for the wait.
func (r *Room) scheduleNextHand() {
	state := r.eng.State()
	state.NextHandAt = time.Now().Add(nextHandDelay)
	r.broadcast()

	deltas := make(map[string]int64, len(state.Players))
	for _, p := range state.Players {
		if start, ok := r.handStartChips[p.ID]; ok {
			deltas[p.ID] = p.Chips - start
		}
	}
	result := state.LastResult

	go func() {
		for playerID, delta := range deltas {
			if _, isBot := r.bots[playerID]; isBot || delta == 0 || r.bankroll == nil {
				continue
			}
			if err := r.bankroll.UpdateBankroll(playerID, delta); err != nil {
				r.log.WithError(err).WithField("player", playerID).Warn("bankroll update failed")
			}
		}
		if result != nil && r.history != nil {
			r.history.PublishHandResult(r.ctx, r.ID, result)
		}

		select {
		case <-r.ctx.Done():
			return
		case <-time.After(nextHandDelay):
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || r.eng.State().Stage != models.StageShowdown {
			return
		}
		if err := r.startHand(); err != nil {
			r.log.WithError(err).Info("not starting next hand")
			return
		}
		r.afterMutation()
	}()
}

// maybeDispatchBot computes the active bot's decision off-lock, then applies
// it as a normal action.
func (r *Room) maybeDispatchBot() {
	state := r.eng.State()
	active := state.ActivePlayer()
	if active == nil {
		return
	}
	difficulty, isBot := r.bots[active.ID]
	if !isBot || r.pendingBot == active.ID {
		return
	}
	r.pendingBot = active.ID
	snap := r.eng.Snapshot()
	botID := active.ID

	go func() {
		action := ai.DecideAction(r.ctx, snap, botID, difficulty)

		r.mu.Lock()
		defer r.mu.Unlock()
		r.pendingBot = ""
		if r.closed {
			return
		}
		current := r.eng.State().ActivePlayer()
		if current == nil || current.ID != botID {
			return
		}
		if err := r.eng.HandleAction(botID, action); err != nil {
			r.log.WithError(err).WithField("bot", botID).Warn("bot action rejected")
			return
		}
		r.afterMutation()
	}()
}

func (r *Room) notifyChange() {
	if r.onChange != nil {
		go r.onChange()
	}
}
