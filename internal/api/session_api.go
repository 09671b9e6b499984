package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"tutorportal/internal/apiclient"
	"tutorportal/internal/events"
	"tutorportal/internal/metrics"
	"tutorportal/internal/model"
	"tutorportal/internal/nav"
	"tutorportal/internal/session"
)

// LoginResponse is returned by POST /api/login.
type LoginResponse struct {
	SessionID string     `json:"sessionId"`
	State     *nav.State `json:"state"`
}

// NavRequest is the body of POST /api/nav.
type NavRequest struct {
	View     nav.View          `json:"view"`
	Selected map[string]string `json:"selected,omitempty"`
}

// NavResponse is the active view and its model.
type NavResponse struct {
	State *nav.State `json:"state"`
	Model any        `json:"model,omitempty"`
	Error string     `json:"error,omitempty"`
}

// handleLogin signs a browser in. An existing session id is reused,
// otherwise a new session is created.
// POST /api/login
func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("login")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req model.LoginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	ctx := r.Context()
	resp, err := s.client.Login(ctx, req)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.writeFailure(w, "login", err)
		return
	}

	id := r.Header.Get(SessionHeader)
	var store session.Store
	if id != "" {
		if store, err = s.sessions.Open(ctx, id); err != nil {
			s.release(id)
			id, store = "", nil
		}
	}
	if store == nil {
		if id, store, err = s.sessions.Create(ctx); err != nil {
			s.writeFailure(w, "login", err)
			return
		}
	}

	s.release(id)
	rs := s.bind(id, store)
	if err := rs.shell.SignIn(ctx, resp.Token, resp.User); err != nil {
		s.writeFailure(w, "login", err)
		return
	}
	st, err := rs.shell.State(ctx)
	if err != nil {
		s.writeFailure(w, "login", err)
		return
	}

	s.logger.Info().Str("session", id).Int64("user_id", resp.User.ID).Str("role", string(resp.User.Role)).Msg("signed in")
	w.Header().Set(SessionHeader, id)
	writeJSON(w, http.StatusOK, LoginResponse{SessionID: id, State: st})
}

// handleLogout clears and removes the session.
// POST /api/logout
func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("logout")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	rs := s.session(w, r)
	if rs == nil {
		return
	}

	s.release(rs.id)
	if err := rs.shell.Logout(r.Context()); err != nil {
		s.writeFailure(w, "logout", err)
		return
	}
	if err := s.sessions.Destroy(r.Context(), rs.id); err != nil {
		s.writeFailure(w, "logout", err)
		return
	}
	if err := s.bus.PublishJSON(events.LoggedOut, rs.id, nil); err != nil {
		s.logger.Error().Err(err).Msg("publish logout")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleNav returns the active view (GET) or switches to another (POST).
// GET|POST /api/nav
func (s *HTTPServer) handleNav(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("nav")
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rs := s.session(w, r)
	if rs == nil {
		return
	}
	ctx := r.Context()

	if r.Method == http.MethodPost {
		var req NavRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if _, err := rs.shell.Navigate(ctx, req.View, req.Selected); err != nil {
			s.writeFailure(w, "nav", err)
			return
		}
	}

	st, out, err := rs.shell.Dispatch(ctx)
	if err != nil {
		if st == nil || errors.Is(err, apiclient.ErrUnauthorized) {
			s.writeFailure(w, "nav", err)
			return
		}
		// The view is still reported so the browser can render it with the
		// error and offer a retry.
		writeJSON(w, http.StatusOK, NavResponse{State: st, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, NavResponse{State: st, Model: out})
}
