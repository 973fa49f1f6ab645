package ledger

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

var startingCash = decimal.NewFromInt(100000)

type recordingObserver struct {
	mu      sync.Mutex
	players []string
	orders  []int
}

func (r *recordingObserver) PlayerRegistered(p Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players = append(r.players, p.ID)
}

func (r *recordingObserver) OrderRecorded(playerID string, seq int, o Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, seq)
}

func TestRegister(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRegistry(startingCash, obs)

	p, err := r.Register("A")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.ID != "A" || !p.StartingCash.Equal(startingCash) || len(p.Orders) != 0 {
		t.Errorf("unexpected player %+v", p)
	}
	if _, err := r.RecordOrder("A", Order{Symbol: "AAPL", Side: Buy, Quantity: 1, Time: 3}); err != nil {
		t.Fatalf("record: %v", err)
	}

	_, err = r.Register("A")
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second register err = %v, want ErrAlreadyExists", err)
	}

	// First registration's state is unaffected.
	got, err := r.Player("A")
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	if len(got.Orders) != 1 {
		t.Errorf("orders after duplicate register = %d, want 1", len(got.Orders))
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
	if len(obs.players) != 1 {
		t.Errorf("observer saw %d registrations, want 1", len(obs.players))
	}
}

func TestRegister_EmptyID(t *testing.T) {
	r := NewRegistry(startingCash)
	if _, err := r.Register(""); !errors.Is(err, ErrInvalidPlayer) {
		t.Errorf("err = %v, want ErrInvalidPlayer", err)
	}
	if r.Count() != 0 {
		t.Errorf("count = %d, want 0", r.Count())
	}
}

func TestRecordOrder_UnknownPlayer(t *testing.T) {
	r := NewRegistry(startingCash)
	_, err := r.RecordOrder("X", Order{Symbol: "AAPL", Side: Buy, Quantity: 1, Time: 0})
	if !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("err = %v, want ErrPlayerNotFound", err)
	}
	if r.Exists("X") {
		t.Errorf("failed trade must not create a player")
	}
}

func TestRecordOrder_Validation(t *testing.T) {
	r := NewRegistry(startingCash)
	if _, err := r.Register("A"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		order Order
	}{
		{"empty symbol", Order{Side: Buy, Quantity: 1}},
		{"bad side", Order{Symbol: "AAPL", Quantity: 1}},
		{"zero quantity", Order{Symbol: "AAPL", Side: Sell}},
		{"negative quantity", Order{Symbol: "AAPL", Side: Sell, Quantity: -5}},
		{"negative time", Order{Symbol: "AAPL", Side: Buy, Quantity: 1, Time: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.RecordOrder("A", tt.order); !errors.Is(err, ErrInvalidOrder) {
				t.Errorf("err = %v, want ErrInvalidOrder", err)
			}
		})
	}

	p, _ := r.Player("A")
	if len(p.Orders) != 0 {
		t.Errorf("invalid orders were appended: %d", len(p.Orders))
	}
}

func TestRecordOrder_AcceptsOutOfOrderTimesAndShorts(t *testing.T) {
	r := NewRegistry(startingCash)
	if _, err := r.Register("A"); err != nil {
		t.Fatal(err)
	}

	orders := []Order{
		{Symbol: "AAPL", Side: Buy, Quantity: 5, Time: 10},
		{Symbol: "NVDA", Side: Sell, Quantity: 1000000, Time: 2},
		{Symbol: "UNKNOWN", Side: Buy, Quantity: 1, Time: 2},
	}
	for i, o := range orders {
		seq, err := r.RecordOrder("A", o)
		if err != nil {
			t.Fatalf("order %d: %v", i, err)
		}
		if seq != i {
			t.Errorf("seq = %d, want %d", seq, i)
		}
	}

	p, _ := r.Player("A")
	for i := range orders {
		if p.Orders[i] != orders[i] {
			t.Errorf("orders[%d] = %+v, want %+v (insertion order)", i, p.Orders[i], orders[i])
		}
	}
}

func TestPlayer_ReturnsCopy(t *testing.T) {
	r := NewRegistry(startingCash)
	if _, err := r.Register("A"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.RecordOrder("A", Order{Symbol: "AAPL", Side: Buy, Quantity: 1, Time: 1}); err != nil {
		t.Fatal(err)
	}

	p, _ := r.Player("A")
	p.Orders[0].Quantity = 999

	again, _ := r.Player("A")
	if again.Orders[0].Quantity != 1 {
		t.Errorf("mutating a view leaked into the registry")
	}
}

func TestRegistry_ConcurrentAppends(t *testing.T) {
	obs := &recordingObserver{}
	r := NewRegistry(startingCash, obs)
	const players, perPlayer = 8, 50

	for i := 0; i < players; i++ {
		if _, err := r.Register(fmt.Sprintf("p%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		for j := 0; j < perPlayer; j++ {
			wg.Add(1)
			go func(id string, step int64) {
				defer wg.Done()
				if _, err := r.RecordOrder(id, Order{Symbol: "AAPL", Side: Buy, Quantity: 1, Time: step}); err != nil {
					t.Errorf("record: %v", err)
				}
				if _, err := r.Player(id); err != nil {
					t.Errorf("player: %v", err)
				}
			}(fmt.Sprintf("p%d", i), int64(j))
		}
	}
	wg.Wait()

	for i := 0; i < players; i++ {
		p, _ := r.Player(fmt.Sprintf("p%d", i))
		if len(p.Orders) != perPlayer {
			t.Errorf("p%d has %d orders, want %d", i, len(p.Orders), perPlayer)
		}
	}
	if len(obs.orders) != players*perPlayer {
		t.Errorf("observer saw %d orders, want %d", len(obs.orders), players*perPlayer)
	}
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"buy", Buy, false},
		{"SELL", Sell, false},
		{" Buy ", Buy, false},
		{"short", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSide(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSide(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSide(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if err != nil && !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("ParseSide(%q) err should wrap ErrInvalidOrder", tt.in)
		}
	}
}
