package api

// API request/response types for REST endpoints and WebSocket messages

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/papertrade/pkg/market"
	"github.com/uhyunpark/papertrade/pkg/portfolio"
	"github.com/uhyunpark/papertrade/pkg/storage"
)

// ==============================
// REST Request Types
// ==============================

// CreatePlayerRequest is the payload for POST /player
type CreatePlayerRequest struct {
	PlayerID string `json:"playerId"`
}

// TradeRequest is the payload for POST /trade
type TradeRequest struct {
	PlayerID string `json:"playerId"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"` // "buy" or "sell"
	Quantity int64  `json:"quantity"`
	T        int64  `json:"T"` // simulation step the order fills at
}

// ==============================
// REST Response Types
// ==============================

type CreatePlayerResponse struct {
	Message  string `json:"message"`
	PlayerID string `json:"playerId"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CashLine is the "cash" entry of a snapshot; price_per_share is always 1.
type CashLine struct {
	Amount        json.Number `json:"amount"`
	PricePerShare json.Number `json:"price_per_share"`
	Value         json.Number `json:"value"`
}

// HoldingLine is the entry for one traded symbol.
type HoldingLine struct {
	Quantity      int64       `json:"quantity"`
	PricePerShare json.Number `json:"price_per_share"`
	Value         json.Number `json:"value"`
}

type SymbolHolding struct {
	Symbol string
	HoldingLine
}

// SnapshotResponse serializes as
//
//	{"cash":{...},"<SYMBOL>":{...},...,"timestamp":N}
//
// with symbols in first-trade order.
type SnapshotResponse struct {
	Timestamp int64
	Cash      CashLine
	Holdings  []SymbolHolding
}

// PricePointResponse is one entry of GET /price-history
type PricePointResponse struct {
	Ticker    string      `json:"ticker"`
	Price     json.Number `json:"price"`
	Timestamp string      `json:"timestamp"` // ISO-8601 UTC, millisecond precision
}

type WaveInfo struct {
	Amplitude json.Number `json:"amplitude"`
	Frequency json.Number `json:"frequency"`
}

// SecurityInfo describes a catalog entry
type SecurityInfo struct {
	Ticker    string      `json:"ticker"`
	BasePrice json.Number `json:"basePrice"`
	Trend     json.Number `json:"trend"`
	Waves     []WaveInfo  `json:"waves"`
}

// ClockResponse reports the current simulation step
type ClockResponse struct {
	T     int64  `json:"T"`
	Epoch string `json:"epoch"`
}

// JournalEntry is one accepted order as recorded in the journal
type JournalEntry struct {
	PlayerID   string `json:"playerId"`
	Seq        int    `json:"seq"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Quantity   int64  `json:"quantity"`
	T          int64  `json:"T"`
	RecordedAt string `json:"recordedAt"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["trades", "trades:alice"]
}

// TradeUpdate is broadcast when an order is recorded
type TradeUpdate struct {
	Type     string `json:"type"` // "trade"
	PlayerID string `json:"playerId"`
	Seq      int    `json:"seq"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity int64  `json:"quantity"`
	T        int64  `json:"T"`
}

// SubscriptionAck confirms a subscribe/unsubscribe request.
// Type is "subscribed" or "unsubscribed".
type SubscriptionAck struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

// PlayerUpdate is broadcast when a player registers
type PlayerUpdate struct {
	Type     string `json:"type"` // "player"
	PlayerID string `json:"playerId"`
}

// ==============================
// Conversions
// ==============================

// isoMillis matches JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func newSnapshotResponse(s portfolio.Snapshot) SnapshotResponse {
	resp := SnapshotResponse{
		Timestamp: s.Timestamp,
		Cash: CashLine{
			Amount:        number(s.Cash.Amount),
			PricePerShare: number(s.Cash.PricePerShare),
			Value:         number(s.Cash.Value),
		},
		Holdings: make([]SymbolHolding, len(s.Holdings)),
	}
	for i, h := range s.Holdings {
		resp.Holdings[i] = SymbolHolding{
			Symbol: h.Symbol,
			HoldingLine: HoldingLine{
				Quantity:      h.Quantity,
				PricePerShare: number(h.PricePerShare),
				Value:         number(h.Value),
			},
		}
	}
	return resp
}

func newPricePointResponse(p market.PricePoint) PricePointResponse {
	return PricePointResponse{
		Ticker:    p.Ticker,
		Price:     number(p.Price),
		Timestamp: p.Timestamp.UTC().Format(isoMillis),
	}
}

func newSecurityInfo(p market.SecurityProfile) SecurityInfo {
	info := SecurityInfo{
		Ticker:    p.Ticker,
		BasePrice: number(p.BasePrice),
		Trend:     number(p.Trend),
		Waves:     make([]WaveInfo, len(p.Waves)),
	}
	for i, w := range p.Waves {
		info.Waves[i] = WaveInfo{Amplitude: number(w.Amplitude), Frequency: number(w.Frequency)}
	}
	return info
}

func newJournalEntry(r storage.OrderRecord) JournalEntry {
	return JournalEntry{
		PlayerID:   r.PlayerID,
		Seq:        r.Seq,
		Symbol:     r.Symbol,
		Side:       r.Side,
		Quantity:   r.Quantity,
		T:          r.T,
		RecordedAt: r.RecordedAt.UTC().Format(isoMillis),
	}
}

// ==============================
// Snapshot JSON
// ==============================

const (
	keyCash      = "cash"
	keyTimestamp = "timestamp"
)

// reservedSymbol reports whether a symbol would collide with a snapshot key.
func reservedSymbol(symbol string) bool {
	return symbol == keyCash || symbol == keyTimestamp
}

func (s SnapshotResponse) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(`{"cash":`)
	cash, err := json.Marshal(s.Cash)
	if err != nil {
		return nil, err
	}
	buf.Write(cash)

	for _, h := range s.Holdings {
		key, err := json.Marshal(h.Symbol)
		if err != nil {
			return nil, err
		}
		line, err := json.Marshal(h.HoldingLine)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(line)
	}

	buf.WriteString(`,"timestamp":`)
	buf.WriteString(strconv.FormatInt(s.Timestamp, 10))
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps holdings in document order.
func (s *SnapshotResponse) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if tok, err := dec.Token(); err != nil {
		return err
	} else if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("snapshot: expected object, got %v", tok)
	}

	*s = SnapshotResponse{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)

		switch key {
		case keyCash:
			if err := dec.Decode(&s.Cash); err != nil {
				return fmt.Errorf("snapshot cash: %w", err)
			}
		case keyTimestamp:
			if err := dec.Decode(&s.Timestamp); err != nil {
				return fmt.Errorf("snapshot timestamp: %w", err)
			}
		default:
			var line HoldingLine
			if err := dec.Decode(&line); err != nil {
				return fmt.Errorf("snapshot holding %s: %w", key, err)
			}
			s.Holdings = append(s.Holdings, SymbolHolding{Symbol: key, HoldingLine: line})
		}
	}

	_, err := dec.Token()
	return err
}
