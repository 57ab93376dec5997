// Package api serves the market engine over HTTP.
// GET endpoints read state; POST endpoints drive the transaction API and
// answer {"ok": bool, "messages": [...]}.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/talgya/star-market/internal/engine"
)

const maxStreamConns = 8

// Store is the persistence the API needs.
type Store interface {
	SaveGame(ctx context.Context, slot string, snap engine.Snapshot) error
	RecentTrades(ctx context.Context, limit int) ([]engine.TradeRecord, error)
}

// Options tunes the server.
type Options struct {
	RateLimit   float64 // Requests per second per IP
	RateBurst   int
	SaveSlot    string
	StreamEvery time.Duration
	Logger      *slog.Logger
}

// Server serves the market state over HTTP.
type Server struct {
	eng      *engine.Engine
	feed     *Feed
	store    Store // Optional
	opts     Options
	log      *slog.Logger
	mux      *chi.Mux
	limiter  *RateLimiter
	upgrader websocket.Upgrader

	streams int32
}

// New builds the router. store may be nil, which disables saving and the
// trade log endpoints.
func New(eng *engine.Engine, feed *Feed, store Store, opts Options) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	if opts.SaveSlot == "" {
		opts.SaveSlot = "main"
	}
	if opts.StreamEvery <= 0 {
		opts.StreamEvery = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		eng:     eng,
		feed:    feed,
		store:   store,
		opts:    opts,
		log:     logger,
		mux:     chi.NewRouter(),
		limiter: NewRateLimiter(opts.RateLimit, opts.RateBurst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Limiter exposes the rate limiter so the caller can sweep idle clients.
func (s *Server) Limiter() *RateLimiter { return s.limiter }

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limiter.Middleware)

		r.Get("/state", s.handleState)
		r.Get("/recommendations", s.handleRecommendations)
		r.Get("/messages", s.handleMessages)
		r.Get("/trades", s.handleTrades)
		r.Get("/galaxies", s.handleGalaxies)
		r.Get("/stream", s.handleStream)

		r.Post("/buy", s.listingAction(s.eng.HandleBuyClick))
		r.Post("/sell", s.listingAction(s.eng.HandleSellClick))
		r.Post("/sell-all", s.listingAction(s.eng.HandleSellAll))
		r.Post("/buy-all", s.simpleAction(s.eng.HandleBuyAll))
		r.Post("/trader/next", s.simpleAction(s.eng.HandleNextTrader))
		r.Post("/trader/prev", s.simpleAction(s.eng.HandlePrevTrader))
		r.Post("/use", s.handleUse)
		r.Post("/jump", s.handleJump)
		r.Post("/fuel", s.handleFuel)
		r.Post("/quantum", s.handleQuantum)
		r.Post("/save", s.handleSave)
	})
}

type actionResponse struct {
	OK       bool      `json:"ok"`
	Messages []Message `json:"messages"`
}

// act runs an engine action and returns it with the notices it produced.
func (s *Server) act(w http.ResponseWriter, fn func() bool) {
	before := s.feed.Last()
	ok := fn()
	msgs, _ := s.feed.Since(before)
	writeJSON(w, http.StatusOK, actionResponse{OK: ok, Messages: msgs})
}

func (s *Server) simpleAction(fn func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.act(w, fn)
	}
}

type listingRequest struct {
	Index  *int   `json:"index"`
	Name   string `json:"name"`
	ItemID int    `json:"item_id"`
}

func (req listingRequest) ref() (engine.ListingRef, error) {
	switch {
	case req.Name != "":
		return engine.ByName(req.Name), nil
	case req.ItemID > 0:
		return engine.ByItemID(req.ItemID), nil
	case req.Index != nil:
		return engine.ByIndex(*req.Index), nil
	}
	return engine.ListingRef{}, errors.New("one of index, name or item_id is required")
}

func (s *Server) listingAction(fn func(engine.ListingRef) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req listingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json payload")
			return
		}
		ref, err := req.ref()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.act(w, func() bool { return fn(ref) })
	}
}

func (s *Server) handleUse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	s.act(w, func() bool { return s.eng.HandleUseItem(req.Name) })
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Galaxy string `json:"galaxy"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Galaxy) == "" {
		writeError(w, http.StatusBadRequest, "galaxy is required")
		return
	}
	s.act(w, func() bool { return s.eng.TravelToGalaxy(req.Galaxy) })
}

func (s *Server) handleFuel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return
	}
	s.act(w, func() bool { return s.eng.BuyFuel(req.Amount) })
}

func (s *Server) handleQuantum(w http.ResponseWriter, r *http.Request) {
	var req struct {
		On bool `json:"on"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return
	}
	s.act(w, func() bool { return s.eng.SetQuantumPower(req.On) })
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "persistence disabled")
		return
	}
	if err := s.store.SaveGame(r.Context(), s.opts.SaveSlot, s.eng.ExportSnapshot()); err != nil {
		s.log.Error("save failed", "slot", s.opts.SaveSlot, "error", err)
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "slot": s.opts.SaveSlot})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.View())
}

func (s *Server) handleRecommendations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Recommendations())
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	msgs, last := s.feed.Since(since)
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs, "last": last})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, s.eng.TradeHistory())
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	trades, err := s.store.RecentTrades(r.Context(), limit)
	if err != nil {
		s.log.Error("recent trades", "error", err)
		writeError(w, http.StatusInternalServerError, "trade log unavailable")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

type galaxyEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Danger   bool   `json:"danger"`
	War      bool   `json:"war"`
	FuelCost int    `json:"fuel_cost"`
}

func (s *Server) handleGalaxies(w http.ResponseWriter, _ *http.Request) {
	cat := s.eng.Catalog()
	out := make([]galaxyEntry, 0, len(cat.Galaxies))
	for _, g := range cat.Galaxies {
		cost, _ := s.eng.JumpFuelCost(g.ID)
		out = append(out, galaxyEntry{ID: g.ID, Name: g.Name, Danger: g.Danger, War: g.War, FuelCost: cost})
	}
	writeJSON(w, http.StatusOK, out)
}

type streamFrame struct {
	State    engine.View `json:"state"`
	Messages []Message   `json:"messages"`
}

// handleStream pushes the state and new messages over a websocket.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if atomic.AddInt32(&s.streams, 1) > maxStreamConns {
		atomic.AddInt32(&s.streams, -1)
		writeError(w, http.StatusServiceUnavailable, "too many stream connections")
		return
	}
	defer atomic.AddInt32(&s.streams, -1)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Reader detects the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.log.Info("stream client connected", "remote", r.RemoteAddr)
	ticker := time.NewTicker(s.opts.StreamEvery)
	defer ticker.Stop()

	var last uint64
	send := func() bool {
		msgs, seq := s.feed.Since(last)
		last = seq
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(streamFrame{State: s.eng.View(), Messages: msgs}) == nil
	}
	if !send() {
		return
	}
	for {
		select {
		case <-done:
			s.log.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
