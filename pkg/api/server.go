// Package api serves the paper-trading game over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/papertrade/pkg/ledger"
	"github.com/uhyunpark/papertrade/pkg/market"
	"github.com/uhyunpark/papertrade/pkg/metrics"
	"github.com/uhyunpark/papertrade/pkg/portfolio"
	"github.com/uhyunpark/papertrade/pkg/storage"
	"github.com/uhyunpark/papertrade/pkg/util"
)

const (
	errPlayerExists   = "Player already exists"
	errPlayerNotFound = "Player not found"
	errInvalidBody    = "Invalid request body"
	errInvalidPlayer  = "Invalid player id"
	errInvalidOrder   = "Invalid order"
	errInvalidTime    = "Invalid T"
	errInternal       = "Internal error"

	shutdownTimeout = 5 * time.Second
)

// Options wires the server to the game state.
type Options struct {
	Registry *ledger.Registry
	Catalog  *market.Catalog
	Engine   *portfolio.Engine
	Journal  storage.Journal
	Hub      *Hub
	Epoch    market.Epoch
	Clock    util.Clock
	// HistoryLookback is the number of price points per ticker.
	HistoryLookback int64
	AllowedOrigins  []string
	// Metrics, when set, instruments every route and serves GET /metrics.
	Metrics *metrics.Metrics
	Log     *zap.SugaredLogger
}

// Server handles REST API and WebSocket connections
type Server struct {
	registry        *ledger.Registry
	catalog         *market.Catalog
	engine          *portfolio.Engine
	journal         storage.Journal
	hub             *Hub
	epoch           market.Epoch
	clock           util.Clock
	historyLookback int64
	allowedOrigins  []string
	metrics         *metrics.Metrics

	router *mux.Router
	log    *zap.SugaredLogger
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.Journal == nil {
		opts.Journal = storage.NewNopJournal()
	}
	if opts.Clock == nil {
		opts.Clock = util.RealClock{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(opts.Log)
	}
	if opts.HistoryLookback <= 0 {
		opts.HistoryLookback = portfolio.DefaultLookback
	}

	s := &Server{
		registry:        opts.Registry,
		catalog:         opts.Catalog,
		engine:          opts.Engine,
		journal:         opts.Journal,
		hub:             opts.Hub,
		epoch:           opts.Epoch,
		clock:           opts.Clock,
		historyLookback: opts.HistoryLookback,
		allowedOrigins:  opts.AllowedOrigins,
		metrics:         opts.Metrics,
		router:          mux.NewRouter(),
		log:             opts.Log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Game endpoints
	s.router.HandleFunc("/player", s.handleCreatePlayer).Methods("POST")
	s.router.HandleFunc("/trade", s.handleTrade).Methods("POST")
	s.router.HandleFunc("/portfolio/{playerId}", s.handleGetPortfolio).Methods("GET")
	s.router.HandleFunc("/price-history", s.handleGetPriceHistory).Methods("GET")

	// Read-only extras
	s.router.HandleFunc("/player/{playerId}/orders", s.handleGetOrders).Methods("GET")
	s.router.HandleFunc("/securities", s.handleGetSecurities).Methods("GET")
	s.router.HandleFunc("/time", s.handleGetTime).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
		s.router.Use(s.metrics.Middleware)
	}
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start runs the hub and serves on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("api_server_starting", "addr", addr, "origins", s.allowedOrigins)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Infow("api_server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody, err.Error())
		return
	}

	p, err := s.registry.Register(req.PlayerID)
	switch {
	case errors.Is(err, ledger.ErrAlreadyExists):
		respondError(w, http.StatusBadRequest, errPlayerExists, "")
		return
	case errors.Is(err, ledger.ErrInvalidPlayer):
		respondError(w, http.StatusBadRequest, errInvalidPlayer, "playerId must be non-empty")
		return
	case err != nil:
		s.log.Errorw("player_register_failed", "player_id", req.PlayerID, "err", err)
		respondError(w, http.StatusInternalServerError, errInternal, "")
		return
	}

	s.log.Infow("player_registered", "player_id", p.ID, "starting_cash", p.StartingCash.String())
	respondJSON(w, CreatePlayerResponse{Message: "Player created", PlayerID: p.ID})
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody, err.Error())
		return
	}

	if !s.registry.Exists(req.PlayerID) {
		respondError(w, http.StatusNotFound, errPlayerNotFound, "")
		return
	}

	order, err := s.parseOrder(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidOrder, err.Error())
		return
	}

	seq, err := s.registry.RecordOrder(req.PlayerID, order)
	switch {
	case errors.Is(err, ledger.ErrPlayerNotFound):
		respondError(w, http.StatusNotFound, errPlayerNotFound, "")
		return
	case errors.Is(err, ledger.ErrInvalidOrder):
		respondError(w, http.StatusBadRequest, errInvalidOrder, err.Error())
		return
	case err != nil:
		s.log.Errorw("trade_record_failed", "player_id", req.PlayerID, "err", err)
		respondError(w, http.StatusInternalServerError, errInternal, "")
		return
	}

	s.log.Infow("trade_recorded",
		"player_id", req.PlayerID,
		"seq", seq,
		"symbol", order.Symbol,
		"side", order.Side.String(),
		"quantity", order.Quantity,
		"t", order.Time,
		"known_security", s.catalog.Has(order.Symbol))

	respondJSON(w, MessageResponse{Message: "Trade recorded"})
}

func (s *Server) parseOrder(req TradeRequest) (ledger.Order, error) {
	side, err := ledger.ParseSide(req.Side)
	if err != nil {
		return ledger.Order{}, err
	}
	if reservedSymbol(req.Symbol) {
		return ledger.Order{}, fmt.Errorf("%w: symbol %q is reserved", ledger.ErrInvalidOrder, req.Symbol)
	}

	order := ledger.Order{
		Symbol:   req.Symbol,
		Side:     side,
		Quantity: req.Quantity,
		Time:     req.T,
	}
	return order, order.Validate()
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerId"]

	player, err := s.registry.Player(playerID)
	if err != nil {
		respondError(w, http.StatusNotFound, errPlayerNotFound, "")
		return
	}

	tNow, err := parseT(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidTime, err.Error())
		return
	}

	snapshots, err := s.engine.Replay(player, tNow)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidTime, err.Error())
		return
	}

	response := make([]SnapshotResponse, len(snapshots))
	for i, snap := range snapshots {
		response[i] = newSnapshotResponse(snap)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetPriceHistory(w http.ResponseWriter, r *http.Request) {
	tEnd, err := parseT(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidTime, err.Error())
		return
	}

	points := s.catalog.AllHistory(tEnd, s.historyLookback, s.epoch)
	response := make([]PricePointResponse, len(points))
	for i, p := range points {
		response[i] = newPricePointResponse(p)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerId"]

	if !s.registry.Exists(playerID) {
		respondError(w, http.StatusNotFound, errPlayerNotFound, "")
		return
	}

	records, err := s.journal.Orders(playerID)
	if err != nil {
		s.log.Errorw("journal_read_failed", "player_id", playerID, "err", err)
		respondError(w, http.StatusInternalServerError, errInternal, "")
		return
	}

	response := make([]JournalEntry, len(records))
	for i, rec := range records {
		response[i] = newJournalEntry(rec)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetSecurities(w http.ResponseWriter, r *http.Request) {
	profiles := s.catalog.Profiles()

	response := make([]SecurityInfo, len(profiles))
	for i, p := range profiles {
		response[i] = newSecurityInfo(p)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetTime(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, ClockResponse{
		T:     s.epoch.StepAt(s.clock.Now()),
		Epoch: s.epoch.Start.UTC().Format(isoMillis),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

// parseT reads the simulation step from the T query parameter.
func parseT(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("T")
	if raw == "" {
		return 0, errors.New("query parameter T is required")
	}
	t, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("T must be an integer")
	}
	if t < 0 {
		return 0, errors.New("T must be non-negative")
	}
	return t, nil
}

// respondJSON writes the body without a trailing newline.
func respondJSON(w http.ResponseWriter, data interface{}) {
	respond(w, http.StatusOK, data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respond(w, status, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
