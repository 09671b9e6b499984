// Package nav is the navigation shell: it remembers which view is active and
// which entities are selected, persisted in the session store, and dispatches
// to the screen of the active view.
package nav

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tutorportal/internal/model"
	"tutorportal/internal/session"
)

var (
	ErrUnknownView  = errors.New("unknown view")
	ErrForbidden    = errors.New("view not allowed for role")
	ErrNotSignedIn  = errors.New("not signed in")
	ErrBadSelection = errors.New("unknown selection key")
)

// SelectionKeys are the entity ids a view can be opened with.
var SelectionKeys = []string{
	session.KeySelectedHomework,
	session.KeySelectedGroup,
	session.KeySelectedTeacher,
	session.KeySelectedDate,
	session.KeySelectedStudent,
}

// State is the persisted navigation state of a session.
type State struct {
	View      View              `json:"view"`
	Role      model.Role        `json:"role,omitempty"`
	UserID    int64             `json:"userId,omitempty"`
	UserName  string            `json:"userName,omitempty"`
	Selected  map[string]string `json:"selected"`
	SignedIn  bool              `json:"signedIn"`
	Available []View            `json:"available,omitempty"`
}

// SelectedID parses a numeric selection.
func (s *State) SelectedID(key string) (int64, bool) {
	v, ok := s.Selected[key]
	if !ok || v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Screen renders the view model of one view.
type Screen interface {
	Render(ctx context.Context, state *State) (any, error)
}

// ScreenFunc adapts a function to Screen.
type ScreenFunc func(ctx context.Context, state *State) (any, error)

func (f ScreenFunc) Render(ctx context.Context, state *State) (any, error) {
	return f(ctx, state)
}

// Registry maps views to screens. It is shared by every shell.
type Registry struct {
	screens map[View]Screen
}

func NewRegistry() *Registry {
	return &Registry{screens: make(map[View]Screen)}
}

func (r *Registry) Register(v View, s Screen) {
	r.screens[v] = s
}

// Shell is the navigation state of one session.
type Shell struct {
	store    session.Store
	registry *Registry
}

func NewShell(store session.Store, registry *Registry) *Shell {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Shell{store: store, registry: registry}
}

// Store exposes the underlying session store.
func (s *Shell) Store() session.Store {
	return s.store
}

// Token returns the bearer token of the session; it matches apiclient.TokenFunc.
func (s *Shell) Token(ctx context.Context) (string, error) {
	return session.GetString(ctx, s.store, session.KeyToken)
}

// SignIn stores the token and user and opens the role's dashboard.
func (s *Shell) SignIn(ctx context.Context, token string, user model.User) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	values := [][2]string{
		{session.KeyToken, token},
		{session.KeyRole, string(user.Role)},
		{session.KeyUserID, strconv.FormatInt(user.ID, 10)},
		{session.KeyUserName, user.Name},
		{session.KeyView, string(HomeFor(user.Role))},
	}
	for _, kv := range values {
		if err := s.store.Set(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("store %s: %w", kv[0], err)
		}
	}
	return nil
}

// Logout drops everything stored for the session.
func (s *Shell) Logout(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// State reads the navigation state. Without a token the view is login.
func (s *Shell) State(ctx context.Context) (*State, error) {
	st := &State{View: ViewLogin, Selected: make(map[string]string)}

	token, err := session.GetString(ctx, s.store, session.KeyToken)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return st, nil
	}
	st.SignedIn = true

	role, err := session.GetString(ctx, s.store, session.KeyRole)
	if err != nil {
		return nil, err
	}
	st.Role = model.Role(role)

	if raw, err := session.GetString(ctx, s.store, session.KeyUserID); err != nil {
		return nil, err
	} else if raw != "" {
		st.UserID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if st.UserName, err = session.GetString(ctx, s.store, session.KeyUserName); err != nil {
		return nil, err
	}

	view, err := session.GetString(ctx, s.store, session.KeyView)
	if err != nil {
		return nil, err
	}
	st.View = View(view)
	if !Known(st.View) || !Allowed(st.Role, st.View) || st.View == ViewLogin {
		st.View = HomeFor(st.Role)
	}

	for _, key := range SelectionKeys {
		v, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			st.Selected[key] = v
		}
	}
	st.Available = availableViews(st.Role)
	return st, nil
}

// Current returns the active view.
func (s *Shell) Current(ctx context.Context) (View, error) {
	st, err := s.State(ctx)
	if err != nil {
		return "", err
	}
	return st.View, nil
}

// Selected returns a selection of the active view, "" when unset.
func (s *Shell) Selected(ctx context.Context, key string) (string, error) {
	if !isSelectionKey(key) {
		return "", fmt.Errorf("%w: %q", ErrBadSelection, key)
	}
	return session.GetString(ctx, s.store, key)
}

// Navigate switches to view v, updating the given selections. An empty
// selection value clears it.
func (s *Shell) Navigate(ctx context.Context, v View, selections map[string]string) (*State, error) {
	if !Known(v) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, v)
	}
	for key := range selections {
		if !isSelectionKey(key) {
			return nil, fmt.Errorf("%w: %q", ErrBadSelection, key)
		}
	}

	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	if !st.SignedIn {
		return nil, ErrNotSignedIn
	}
	if !Allowed(st.Role, v) {
		return nil, fmt.Errorf("%w: %s cannot open %s", ErrForbidden, st.Role, v)
	}

	for key, value := range selections {
		if value == "" {
			err = s.store.Delete(ctx, key)
		} else {
			err = s.store.Set(ctx, key, value)
		}
		if err != nil {
			return nil, fmt.Errorf("store selection %s: %w", key, err)
		}
	}
	if err := s.store.Set(ctx, session.KeyView, string(v)); err != nil {
		return nil, err
	}
	return s.State(ctx)
}

// Dispatch renders the active view. A view without a registered screen
// falls back to the role's dashboard.
func (s *Shell) Dispatch(ctx context.Context) (*State, any, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, nil, err
	}
	screen, ok := s.registry.screens[st.View]
	if !ok {
		st.View = HomeFor(st.Role)
		screen, ok = s.registry.screens[st.View]
	}
	if !ok {
		return st, nil, nil
	}
	out, err := screen.Render(ctx, st)
	return st, out, err
}

func isSelectionKey(key string) bool {
	for _, k := range SelectionKeys {
		if k == key {
			return true
		}
	}
	return false
}

func availableViews(role model.Role) []View {
	all := []View{ViewHomeworks, ViewHomeworkDetail, ViewBooking, ViewRanking, ViewGroups, ViewSchedule}
	out := []View{HomeFor(role)}
	for _, v := range all {
		if Allowed(role, v) {
			out = append(out, v)
		}
	}
	return out
}
