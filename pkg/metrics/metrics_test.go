package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/papertrade/pkg/ledger"
	"github.com/uhyunpark/papertrade/pkg/market"
	"github.com/uhyunpark/papertrade/pkg/portfolio"
)

func TestObserverCounters(t *testing.T) {
	m := New()
	reg := ledger.NewRegistry(decimal.NewFromInt(1000), m)

	if _, err := reg.Register("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register("a"); err == nil {
		t.Fatal("duplicate registration accepted")
	}
	for _, side := range []ledger.Side{ledger.Buy, ledger.Buy, ledger.Sell} {
		if _, err := reg.RecordOrder("a", ledger.Order{Symbol: "AAPL", Side: side, Quantity: 1}); err != nil {
			t.Fatal(err)
		}
	}

	if got := testutil.ToFloat64(m.PlayersTotal); got != 1 {
		t.Errorf("players = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.OrdersTotal.WithLabelValues("buy")); got != 2 {
		t.Errorf("buys = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.OrdersTotal.WithLabelValues("sell")); got != 1 {
		t.Errorf("sells = %v, want 1", got)
	}
}

func TestWatchEngine(t *testing.T) {
	m := New()
	engine, err := portfolio.NewEngine(market.DefaultCatalog(), portfolio.DefaultLookback, 4)
	if err != nil {
		t.Fatal(err)
	}
	m.WatchEngine(engine)

	p := ledger.Player{ID: "w", StartingCash: decimal.NewFromInt(1000)}
	for _, tNow := range []int64{100, 120} {
		if _, err := engine.Replay(p, tNow); err != nil {
			t.Fatal(err)
		}
	}

	expected := `
# HELP papertrade_replay_checkpoints Players with a cached checkpoint.
# TYPE papertrade_replay_checkpoints gauge
papertrade_replay_checkpoints 1
`
	if err := testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected), "papertrade_replay_checkpoints"); err != nil {
		t.Error(err)
	}
}

func TestMiddleware(t *testing.T) {
	m := New()
	r := mux.NewRouter()
	r.HandleFunc("/portfolio/{playerId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Use(m.Middleware)

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/portfolio/p"+string(rune('a'+i)), nil))
	}

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/portfolio/{playerId}", "404"))
	if got != 3 {
		t.Errorf("requests = %v, want 3", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "papertrade_http_request_duration_seconds") {
		t.Error("latency histogram not exported")
	}
}
