// Package server exposes the speech analysis service over HTTP: account
// registration and login, recording session lifecycle, analysis submission,
// synthesized audio retrieval, and per-user progress views.
package server

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/speakwell/speakwell/internal/analysis"
	"github.com/speakwell/speakwell/internal/auth"
	"github.com/speakwell/speakwell/internal/health"
	"github.com/speakwell/speakwell/internal/observe"
	"github.com/speakwell/speakwell/internal/store"
	"github.com/speakwell/speakwell/pkg/types"
)

// Analyzer runs the full analysis of one decoded recording.
type Analyzer interface {
	Run(ctx context.Context, clip types.Clip) (*analysis.Result, error)
}

// Decoder converts an uploaded audio file into a PCM clip.
type Decoder interface {
	Decode(ctx context.Context, path string) (types.Clip, error)
}

// MediaStore persists uploaded recordings and serves synthesized responses.
type MediaStore interface {
	SaveUpload(ext string, r io.Reader) (string, error)
	RemoveUpload(path string) error
	OpenSynthesized(filename string) (io.ReadSeekCloser, error)
}

// UserStore manages registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) error
	UserByUsername(ctx context.Context, username string) (*store.User, error)
}

// RecordingStore persists analysis results and serves progress views.
type RecordingStore interface {
	SaveAnalysis(ctx context.Context, rec *store.Recording) error
	History(ctx context.Context, username string, limit int) ([]store.Recording, error)
	Dashboard(ctx context.Context, username string) (*store.Dashboard, error)
}

// Deps bundles everything a [Server] needs. All fields are required except
// Health.
type Deps struct {
	Tokens     *auth.TokenManager
	Users      UserStore
	Recordings RecordingStore
	Media      MediaStore
	Decoder    Decoder
	Analyzer   Analyzer

	// Health, when set, registers /healthz and /readyz on the router.
	Health *health.Handler
}

// Option is a functional option for [New].
type Option func(*Server)

// WithLogger sets the request logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server is the HTTP API of the speech analysis service.
type Server struct {
	tokens     *auth.TokenManager
	users      UserStore
	recordings RecordingStore
	media      MediaStore
	decoder    Decoder
	analyzer   Analyzer
	health     *health.Handler

	sessions *SessionManager
	metrics  *observe.Metrics
	logger   *slog.Logger
}

// New assembles the Server and its session tracker.
func New(deps Deps, opts ...Option) *Server {
	s := &Server{
		tokens:     deps.Tokens,
		users:      deps.Users,
		recordings: deps.Recordings,
		media:      deps.Media,
		decoder:    deps.Decoder,
		analyzer:   deps.Analyzer,
		health:     deps.Health,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.sessions = NewSessionManager(s.metrics)
	return s
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observe.Middleware(s.metrics))

	if s.health != nil {
		s.health.Register(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.tokens))

		r.Route("/user", func(r chi.Router) {
			r.Get("/me", s.handleMe)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/history", s.handleHistory)
		})

		r.Route("/speech", func(r chi.Router) {
			r.Post("/start", s.handleSpeechStart)
			r.Post("/stop", s.handleSpeechStop)
			r.Get("/audio/{filename}", s.handleSpeechAudio)
		})
	})

	return r
}
