package room

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/as00paf/kpoker/internal/ai"
	"github.com/as00paf/kpoker/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

// Registry owns every live room behind one coarse lock. Rooms themselves run
// independently; the registry only tracks membership of the set.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	bankroll BankrollStore
	history  HistoryPublisher
	onChange func()
}

// NewRegistry wires the collaborators shared by all rooms. onChange fires
// whenever the lobby listing should be re-broadcast.
func NewRegistry(bankroll BankrollStore, history HistoryPublisher, onChange func()) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		bankroll: bankroll,
		history:  history,
		onChange: onChange,
	}
}

// CreateRoom opens an empty multiplayer room. The room deregisters itself
// when it closes, so the lobby only ever lists live rooms.
func (g *Registry) CreateRoom(name string) *Room {
	r := New(name, g.bankroll, g.history, g.onChange, g.Remove)
	g.mu.Lock()
	g.rooms[r.ID] = r
	g.mu.Unlock()
	if g.onChange != nil {
		g.onChange()
	}
	return r
}

// CreateSinglePlayerRoom opens a room with three bots of the requested
// difficulty; the caller then joins as the only human.
func (g *Registry) CreateSinglePlayerRoom(hostName string, difficulty ai.Difficulty) (*Room, error) {
	r := g.CreateRoom(fmt.Sprintf("%s's table", hostName))
	for i := 1; i <= 3; i++ {
		if err := r.AddBot(fmt.Sprintf("Bot %d", i), difficulty); err != nil {
			r.Close()
			return nil, fmt.Errorf("seating bots: %w", err)
		}
	}
	return r, nil
}

func (g *Registry) Get(id string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Remove drops a room from the listing. Closing a registry-created room calls
// this automatically; Remove itself does not close the room.
func (g *Registry) Remove(id string) {
	g.mu.Lock()
	delete(g.rooms, id)
	g.mu.Unlock()
	if g.onChange != nil {
		g.onChange()
	}
}

// List snapshots the lobby listing, sorted by name for a stable order.
func (g *Registry) List() []models.RoomInfo {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.RUnlock()

	listings := make([]models.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		listings = append(listings, r.Info())
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].Name < listings[j].Name })
	return listings
}

// CloseAll shuts every room down, for server shutdown.
func (g *Registry) CloseAll() {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.rooms = make(map[string]*Room)
	g.mu.Unlock()
	for _, r := range rooms {
		r.Close()
	}
}
