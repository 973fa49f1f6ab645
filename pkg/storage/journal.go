// Package storage keeps an append-only journal of accepted registrations and
// orders. The journal is an audit trail: the ledger registry stays the source
// of truth and is never rebuilt from it.
package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlayerRecord is written once per successful registration.
type PlayerRecord struct {
	PlayerID     string          `json:"playerId"`
	StartingCash decimal.Decimal `json:"startingCash"`
	RegisteredAt time.Time       `json:"registeredAt"`
}

// OrderRecord is written once per accepted order. Seq is the order's
// position in the player's log.
type OrderRecord struct {
	PlayerID   string    `json:"playerId"`
	Seq        int       `json:"seq"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   int64     `json:"quantity"`
	T          int64     `json:"T"`
	RecordedAt time.Time `json:"recordedAt"`
}

type Journal interface {
	RecordPlayer(PlayerRecord) error
	RecordOrder(OrderRecord) error
	// Player returns nil if the player was never journaled.
	Player(playerID string) (*PlayerRecord, error)
	// Orders returns the player's orders in Seq order.
	Orders(playerID string) ([]OrderRecord, error)
	Close() error
}

type NopJournal struct{}

func NewNopJournal() *NopJournal { return &NopJournal{} }

func (*NopJournal) RecordPlayer(PlayerRecord) error      { return nil }
func (*NopJournal) RecordOrder(OrderRecord) error        { return nil }
func (*NopJournal) Player(string) (*PlayerRecord, error) { return nil, nil }
func (*NopJournal) Orders(string) ([]OrderRecord, error) { return nil, nil }
func (*NopJournal) Close() error                         { return nil }

var _ Journal = (*NopJournal)(nil)
var _ Journal = (*PebbleJournal)(nil)
