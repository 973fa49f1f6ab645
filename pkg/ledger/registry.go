// Package ledger keeps the player registry and each player's append-only
// order log.
package ledger

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// OrderObserver is notified after a registration or order append commits.
// Calls happen outside the registry lock, so concurrent appends may be
// observed out of order; seq is the order's position in the log.
type OrderObserver interface {
	PlayerRegistered(p Player)
	OrderRecorded(playerID string, seq int, o Order)
}

// Registry maps player identity to starting cash and order log.
// It is the only mutable shared state of the game and is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	players      map[string]*player
	startingCash decimal.Decimal
	observers    []OrderObserver
}

// NewRegistry creates an empty registry handing startingCash to every new player.
func NewRegistry(startingCash decimal.Decimal, observers ...OrderObserver) *Registry {
	return &Registry{
		players:      make(map[string]*player),
		startingCash: startingCash,
		observers:    observers,
	}
}

// StartingCash is the balance new players are created with.
func (r *Registry) StartingCash() decimal.Decimal { return r.startingCash }

// Register creates a player with an empty order log.
// Returns ErrAlreadyExists if playerID is taken; the existing player is untouched.
func (r *Registry) Register(playerID string) (Player, error) {
	if playerID == "" {
		return Player{}, ErrInvalidPlayer
	}

	r.mu.Lock()
	if _, exists := r.players[playerID]; exists {
		r.mu.Unlock()
		return Player{}, fmt.Errorf("register %s: %w", playerID, ErrAlreadyExists)
	}
	p := &player{id: playerID, startingCash: r.startingCash}
	r.players[playerID] = p
	view := p.view()
	r.mu.Unlock()

	for _, o := range r.observers {
		o.PlayerRegistered(view)
	}
	return view, nil
}

// RecordOrder appends o to the player's log and returns its sequence number
// (0-based insertion index). Time need not be increasing.
func (r *Registry) RecordOrder(playerID string, o Order) (int, error) {
	if err := o.Validate(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	p, exists := r.players[playerID]
	if !exists {
		r.mu.Unlock()
		return 0, fmt.Errorf("record order for %s: %w", playerID, ErrPlayerNotFound)
	}
	seq := len(p.orders)
	p.orders = append(p.orders, o)
	r.mu.Unlock()

	for _, obs := range r.observers {
		obs.OrderRecorded(playerID, seq, o)
	}
	return seq, nil
}

// Player returns a snapshot copy of the player's state.
func (r *Registry) Player(playerID string) (Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.players[playerID]
	if !exists {
		return Player{}, fmt.Errorf("player %s: %w", playerID, ErrPlayerNotFound)
	}
	return p.view(), nil
}

// Exists checks if a player is registered
func (r *Registry) Exists(playerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.players[playerID]
	return exists
}

// Count returns the total number of registered players
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
