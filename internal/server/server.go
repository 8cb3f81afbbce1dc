package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	perpdex "github.com/krazyTry/perpdex-go"
	"github.com/krazyTry/perpdex-go/shared"
	"github.com/krazyTry/perpdex-go/snapshot"
)

var (
	ErrNoSnapshot   = errors.New("no snapshot loaded")
	ErrUnknownToken = errors.New("unknown token")
)

// Server exposes an Engine over JSON. The snapshot it quotes against is swapped
// atomically, so quotes in flight keep the snapshot they started with.
type Server struct {
	engine   *perpdex.Engine
	snapshot atomic.Pointer[snapshot.Snapshot]
	logger   zerolog.Logger
}

func New(engine *perpdex.Engine, snap *snapshot.Snapshot, logger zerolog.Logger) *Server {
	s := &Server{engine: engine, logger: logger}
	s.SetSnapshot(snap)
	return s
}

// SetSnapshot replaces the snapshot quotes are priced against.
func (s *Server) SetSnapshot(snap *snapshot.Snapshot) {
	s.snapshot.Store(snap)
	if snap != nil && snap.Info != nil {
		SnapshotMarkets.Set(float64(len(snap.Info.Markets)))
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(metricsMiddleware)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"perpquoted"}`))
	})
	r.Handle("/metrics", MetricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/markets", s.ListMarkets)
		r.Post("/swap/quote", s.SwapQuote)
		r.Post("/positions/increase", s.IncreaseQuote)
		r.Post("/positions/decrease", s.DecreaseQuote)
		r.Post("/positions/info", s.PositionInfo)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("requestId", middleware.GetReqID(r.Context())).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// ListMarkets handles GET /api/v1/markets.
func (s *Server) ListMarkets(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot.Load()
	if snap == nil {
		writeError(w, ErrNoSnapshot.Error(), http.StatusServiceUnavailable)
		return
	}
	markets := make([]MarketDTO, 0, len(snap.Info.Markets))
	for _, m := range snap.Info.Markets {
		markets = append(markets, MarketDTO{
			Address:    m.Address.Hex(),
			IndexToken: m.IndexToken.Hex(),
			LongToken:  m.LongToken.Hex(),
			ShortToken: m.ShortToken.Hex(),
			IsDisabled: m.IsDisabled,
		})
	}
	sort.Slice(markets, func(i, j int) bool { return markets[i].Address < markets[j].Address })
	writeJSON(w, markets)
}

func (s *Server) token(snap *snapshot.Snapshot, field, v string) (*shared.Token, error) {
	address, err := parseAddress(field, v)
	if err != nil {
		return nil, err
	}
	token, ok := snap.Info.Token(address)
	if !ok {
		return nil, errors.Join(ErrUnknownToken, errors.New(field+" "+address.Hex()))
	}
	return token, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// decode reads a JSON body into v, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
