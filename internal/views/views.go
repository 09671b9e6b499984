// Package views builds the view models served to the browser. Every view
// owns a request.Tracker so that a slow response never overwrites the result
// of a newer request.
package views

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"tutorportal/internal/apiclient"
	"tutorportal/internal/config"
	"tutorportal/internal/events"
	"tutorportal/internal/model"
	"tutorportal/internal/request"
)

var (
	// ErrSuperseded is returned to a request whose result was dropped because
	// a newer request of the same view started, or the view was closed.
	ErrSuperseded = errors.New("superseded by a newer request")
	ErrNotLoaded  = errors.New("view not loaded")
	// ErrSlotUnavailable is returned when a booking fails local validation;
	// no request is sent to the school API.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrRejected wraps a booking refused by the school API.
	ErrRejected         = errors.New("booking rejected")
	ErrInvalidDate      = errors.New("invalid date")
	ErrOutsideWindow    = errors.New("date outside booking window")
	ErrMissingSelection = errors.New("missing selection")
)

// loadFailure turns the error of a fetch cancelled by a newer request into
// ErrSuperseded. A 401 is always reported as is.
func loadFailure(h *request.Handle, err error) error {
	if !h.Current() && !errors.Is(err, apiclient.ErrUnauthorized) {
		return ErrSuperseded
	}
	return err
}

// API is the part of the school API the views consume. *apiclient.Client
// implements it.
type API interface {
	Homeworks(ctx context.Context, studentID int64) (*apiclient.HomeworkPage, error)
	GroupResults(ctx context.Context, groupID int64) (*apiclient.ResultPage, error)
	TeacherSchedule(ctx context.Context, teacherID int64) (*model.TeacherSchedule, error)
	Appointments(ctx context.Context, teacherID int64, date string) ([]model.Appointment, error)
	CreateAppointment(ctx context.Context, req model.AppointmentRequest) (*model.Appointment, error)
}

// Rules holds the booking rules; it is swapped when the config file changes.
type Rules struct {
	v atomic.Pointer[config.BookingRules]
}

func NewRules(r config.BookingRules) *Rules {
	rules := &Rules{}
	rules.Set(r)
	return rules
}

func (r *Rules) Set(b config.BookingRules) {
	r.v.Store(&b)
}

func (r *Rules) Get() config.BookingRules {
	if p := r.v.Load(); p != nil {
		return *p
	}
	return config.BookingRules{}
}

// Set groups the views of one browser session.
type Set struct {
	Homework *HomeworkView
	Booking  *BookingView
	Ranking  *RankingView

	api API
}

// Options configures a Set.
type Options struct {
	SessionID string
	Bus       *events.EventBus
	Rules     *Rules
	Now       func() time.Time
	Logger    *zerolog.Logger
}

func NewSet(api API, opts Options) *Set {
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rules == nil {
		opts.Rules = NewRules(config.BookingRules{})
	}
	logger := opts.Logger.With().Str("session", opts.SessionID).Logger()
	return &Set{
		Homework: NewHomeworkView(api, &logger),
		Booking:  NewBookingView(api, opts.Bus, opts.Rules, opts.SessionID, opts.Now, &logger),
		Ranking:  NewRankingView(api, &logger),
		api:      api,
	}
}

// Close cancels in-flight loads of every view.
func (s *Set) Close() {
	s.Homework.Close()
	s.Booking.Close()
	s.Ranking.Close()
}
