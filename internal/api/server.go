// Package api serves the portal's view models over HTTP. Browsers identify
// their session with the X-Session-ID header.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tutorportal/internal/apiclient"
	"tutorportal/internal/config"
	"tutorportal/internal/events"
	"tutorportal/internal/metrics"
	"tutorportal/internal/model"
	"tutorportal/internal/nav"
	"tutorportal/internal/session"
	"tutorportal/internal/views"
)

// SessionHeader carries the session id in requests and login responses.
const SessionHeader = "X-Session-ID"

// Options configures the HTTP server. IdleTimeout releases the views of
// sessions unused for that long; zero keeps them until logout.
type Options struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	Sessions          *session.Manager
	Client            *apiclient.Client
	Bus               *events.EventBus
	Rules             *views.Rules
	PreviewMaxBytes   int
	IdleTimeout       time.Duration
	Now               func() time.Time
	Logger            *zerolog.Logger
}

// HTTPServer is the portal's browser-facing API.
type HTTPServer struct {
	sessions   *session.Manager
	client     *apiclient.Client
	bus        *events.EventBus
	rules      *views.Rules
	previewMax int
	idle       time.Duration
	now        func() time.Time
	logger     *zerolog.Logger
	server     *http.Server

	mu    sync.Mutex
	bound map[string]*sessionViews
}

// sessionViews are the views of one session together with the API client
// authenticating as it.
type sessionViews struct {
	client   *apiclient.Client
	set      *views.Set
	lastUsed time.Time
}

// requestSession is the session resolved for one request.
type requestSession struct {
	id    string
	store session.Store
	shell *nav.Shell
	sv    *sessionViews
}

// NewHTTPServer wires the routes and subscribes to session expiry events.
func NewHTTPServer(opts Options) *HTTPServer {
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 10 * time.Second
	}
	if opts.Bus == nil {
		opts.Bus = events.NewEventBus()
	}
	if opts.Rules == nil {
		opts.Rules = views.NewRules(config.BookingRules{})
	}

	s := &HTTPServer{
		sessions:   opts.Sessions,
		client:     opts.Client,
		bus:        opts.Bus,
		rules:      opts.Rules,
		previewMax: opts.PreviewMaxBytes,
		idle:       opts.IdleTimeout,
		now:        opts.Now,
		logger:     opts.Logger,
		bound:      make(map[string]*sessionViews),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)
	mux.HandleFunc("/api/nav", s.handleNav)
	mux.HandleFunc("/api/homeworks", s.handleHomeworks)
	mux.HandleFunc("/api/homeworks/", s.handleHomeworkDetail)
	mux.HandleFunc("/api/rankings", s.handleRanking)
	mux.HandleFunc("/api/booking/slots", s.handleBookingSlots)
	mux.HandleFunc("/api/booking", s.handleBook)
	mux.HandleFunc("/api/reports/grades.xlsx", s.handleGradesReport)
	mux.HandleFunc("/api/previews", s.handlePreviewUpload)
	mux.HandleFunc("/api/previews/", s.handlePreview)

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}

	s.bus.Subscribe(events.SessionExpired, s.onSessionExpired)
	return s
}

// Handler returns the routes, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
		s.closeAll()
	}()
	if s.idle > 0 {
		go s.sweepIdle(ctx, sweepInterval(s.idle))
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("portal http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// session resolves the X-Session-ID header. It writes the error response and
// returns nil when the session is missing or unknown.
func (s *HTTPServer) session(w http.ResponseWriter, r *http.Request) *requestSession {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "session required")
		return nil
	}
	store, err := s.sessions.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrUnknownSession) || errors.Is(err, session.ErrInvalidID) {
			s.release(id)
			writeError(w, http.StatusUnauthorized, "unknown session")
			return nil
		}
		s.logger.Error().Err(err).Msg("open session")
		writeError(w, http.StatusInternalServerError, "session store unavailable")
		return nil
	}
	return s.bind(id, store)
}

func (s *HTTPServer) bind(id string, store session.Store) *requestSession {
	rs := &requestSession{id: id, store: store}
	s.mu.Lock()
	sv, ok := s.bound[id]
	if !ok {
		sessionID := id
		client := s.client.ForSession(
			func(ctx context.Context) (string, error) {
				return session.GetString(ctx, store, session.KeyToken)
			},
			func() {
				if err := s.bus.PublishJSON(events.SessionExpired, sessionID, nil); err != nil {
					s.logger.Error().Err(err).Msg("publish session expiry")
				}
			},
		)
		sv = &sessionViews{
			client: client,
			set: views.NewSet(client, views.Options{
				SessionID: id,
				Bus:       s.bus,
				Rules:     s.rules,
				Now:       s.now,
				Logger:    s.logger,
			}),
		}
		s.bound[id] = sv
	}
	sv.lastUsed = s.now()
	s.mu.Unlock()

	reg := nav.NewRegistry()
	sv.set.Register(reg)
	rs.sv = sv
	rs.shell = nav.NewShell(store, reg)
	return rs
}

// release closes the views of a session; the next request starts fresh.
func (s *HTTPServer) release(id string) {
	s.mu.Lock()
	sv, ok := s.bound[id]
	delete(s.bound, id)
	s.mu.Unlock()
	if ok {
		sv.set.Close()
	}
}

// EvictIdle releases the views of sessions not used within idle and returns
// how many were released.
func (s *HTTPServer) EvictIdle(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	var stale []*sessionViews
	s.mu.Lock()
	for id, sv := range s.bound {
		if sv.lastUsed.Before(cutoff) {
			stale = append(stale, sv)
			delete(s.bound, id)
		}
	}
	s.mu.Unlock()
	for _, sv := range stale {
		sv.set.Close()
	}
	return len(stale)
}

func (s *HTTPServer) sweepIdle(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(s.idle); n > 0 {
				s.logger.Info().Int("released", n).Msg("released idle session views")
			}
		}
	}
}

func sweepInterval(idle time.Duration) time.Duration {
	interval := idle / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func (s *HTTPServer) closeAll() {
	s.mu.Lock()
	bound := s.bound
	s.bound = make(map[string]*sessionViews)
	s.mu.Unlock()
	for _, sv := range bound {
		sv.set.Close()
	}
}

// onSessionExpired logs a session out after the school API rejected its token.
func (s *HTTPServer) onSessionExpired(e events.Event) error {
	metrics.IncSessionExpired()
	s.release(e.SessionID)

	store, err := s.sessions.Open(context.Background(), e.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			return nil
		}
		return err
	}
	s.logger.Info().Str("session", e.SessionID).Msg("session expired, logging out")
	return nav.NewShell(store, nil).Logout(context.Background())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error JSON response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure maps domain errors to HTTP answers.
func (s *HTTPServer) writeFailure(w http.ResponseWriter, route string, err error) {
	status, message := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "session expired"
	case errors.Is(err, apiclient.ErrNoToken), errors.Is(err, nav.ErrNotSignedIn):
		status, message = http.StatusUnauthorized, "not signed in"
	case errors.Is(err, nav.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, nav.ErrUnknownView), errors.Is(err, nav.ErrBadSelection),
		errors.Is(err, views.ErrInvalidDate), errors.Is(err, views.ErrOutsideWindow),
		errors.Is(err, views.ErrMissingSelection):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, views.ErrSlotUnavailable), errors.Is(err, views.ErrSuperseded):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, views.ErrRejected):
		status, message = apiclient.StatusCode(err), err.Error()
	case errors.Is(err, views.ErrNotLoaded):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, model.ErrMalformed):
		status, message = http.StatusBadGateway, "malformed response from school API"
	case apiclient.StatusCode(err) > 0 || errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusBadGateway, "school API unavailable"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("route", route).Msg("request failed")
	}
	writeError(w, status, message)
}

// signedIn writes 401 unless a user is signed in on the session.
func (s *HTTPServer) signedIn(w http.ResponseWriter, r *http.Request, rs *requestSession) bool {
	st, err := rs.shell.State(r.Context())
	if err != nil {
		s.writeFailure(w, "session", err)
		return false
	}
	if !st.SignedIn {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return false
	}
	return true
}

// allowed checks that the signed-in role may open view and writes the
// error response otherwise.
func (s *HTTPServer) allowed(w http.ResponseWriter, r *http.Request, rs *requestSession, view nav.View) (*nav.State, bool) {
	st, err := rs.shell.State(r.Context())
	if err != nil {
		s.writeFailure(w, string(view), err)
		return nil, false
	}
	if !st.SignedIn {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return nil, false
	}
	if !nav.Allowed(st.Role, view) {
		writeError(w, http.StatusForbidden, "view not allowed for role")
		return nil, false
	}
	return st, true
}
