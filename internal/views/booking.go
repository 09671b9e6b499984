package views

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tutorportal/internal/apiclient"
	"tutorportal/internal/events"
	"tutorportal/internal/metrics"
	"tutorportal/internal/model"
	"tutorportal/internal/request"
	"tutorportal/internal/slots"
)

const dateLayout = "2006-01-02"

// BookingDay is the booking view model for one teacher and date.
type BookingDay struct {
	TeacherID    int64            `json:"teacherId"`
	Date         string           `json:"date"`
	DayOfWeek    int              `json:"dayOfWeek"`
	Availability []string         `json:"availability"`
	Booked       []string         `json:"booked"`
	Slots        []slots.SlotInfo `json:"slots"`
	StartTimes   []string         `json:"startTimes"`

	ranges []slots.TimeRange
	booked []slots.TimeRange
	start  time.Time
}

// BookingCreatedPayload is published on the event bus after a booking.
type BookingCreatedPayload struct {
	AppointmentID int64  `json:"appointmentId"`
	TeacherID     int64  `json:"teacherId"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
}

// BookingView computes the bookable slots of a teacher and books them.
type BookingView struct {
	api       API
	bus       *events.EventBus
	rules     *Rules
	sessionID string
	now       func() time.Time
	tracker   *request.Tracker
	logger    *zerolog.Logger

	mu  sync.RWMutex
	day *BookingDay
}

func NewBookingView(api API, bus *events.EventBus, rules *Rules, sessionID string, now func() time.Time, logger *zerolog.Logger) *BookingView {
	return &BookingView{
		api:       api,
		bus:       bus,
		rules:     rules,
		sessionID: sessionID,
		now:       now,
		tracker:   request.NewTracker(),
		logger:    logger,
	}
}

// ISOWeekday returns the day of week of t as 1 (Monday) to 7 (Sunday).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Load fetches the teacher's availability and the booked slots of date
// (YYYY-MM-DD) and computes the start times still open.
func (v *BookingView) Load(ctx context.Context, teacherID int64, date string) (*BookingDay, error) {
	now := v.now()
	dayStart, err := time.ParseInLocation(dateLayout, date, now.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if err := v.checkWindow(dayStart, now); err != nil {
		return nil, err
	}

	h, ctx := v.tracker.Begin(ctx)
	defer h.Cancel()

	schedule, err := v.api.TeacherSchedule(ctx, teacherID)
	if err != nil {
		return nil, loadFailure(h, err)
	}
	appointments, err := v.api.Appointments(ctx, teacherID, date)
	if err != nil {
		return nil, loadFailure(h, err)
	}

	weekday := ISOWeekday(dayStart)
	ranges, err := slots.FromTimeSlots(schedule.ForDay(weekday))
	if err != nil {
		return nil, fmt.Errorf("teacher %d schedule: %w: %v", teacherID, model.ErrMalformed, err)
	}
	booked := make([]slots.TimeRange, 0, len(appointments))
	for _, a := range appointments {
		if a.Date != "" && a.Date != date {
			continue
		}
		r, err := slots.ParseRange(a.TimeSlot.StartTime, a.TimeSlot.EndTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %d: %w: %v", a.ID, model.ErrMalformed, err)
		}
		booked = append(booked, r)
	}

	day := &BookingDay{
		TeacherID: teacherID,
		Date:      date,
		DayOfWeek: weekday,
		ranges:    ranges,
		booked:    booked,
		start:     dayStart,
	}
	day.refresh(v.earliest(dayStart, now))

	if !h.Apply(func() {
		v.mu.Lock()
		v.day = day
		v.mu.Unlock()
	}) {
		return nil, ErrSuperseded
	}
	return day, nil
}

// Current returns the last applied day.
func (v *BookingView) Current() (*BookingDay, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.day, v.day != nil
}

// Durations lists the durations (minutes) bookable at start on the loaded day.
func (v *BookingView) Durations(start string) ([]int, error) {
	day, ok := v.Current()
	if !ok {
		return nil, ErrNotLoaded
	}
	t, err := slots.ParseTimeOfDay(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
	}
	out := make([]int, 0)
	if t < v.earliest(day.start, v.now()) {
		return out, nil
	}
	for _, d := range v.choices() {
		if slots.IsValidDuration(t, d, day.ranges, day.booked) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Book validates the slot against the loaded day and books it. A slot failing
// local checks returns ErrSlotUnavailable without contacting the school API;
// a refusal from the school API is wrapped in ErrRejected.
func (v *BookingView) Book(ctx context.Context, start string, duration int, comment string) (*model.Appointment, error) {
	day, ok := v.Current()
	if !ok {
		return nil, ErrNotLoaded
	}
	t, err := slots.ParseTimeOfDay(start)
	if err != nil {
		metrics.IncBooking("rejected_local")
		return nil, fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
	}
	now := v.now()
	if err := v.checkWindow(day.start, now); err != nil {
		metrics.IncBooking("rejected_local")
		return nil, err
	}
	if !v.allowedDuration(duration) || t < v.earliest(day.start, now) ||
		!slots.IsValidDuration(t, duration, day.ranges, day.booked) {
		metrics.IncBooking("rejected_local")
		return nil, fmt.Errorf("%w: %s for %s", ErrSlotUnavailable, t, slots.FormatDuration(duration))
	}

	end := t.Add(duration)
	req := model.AppointmentRequest{
		TeacherID:      day.TeacherID,
		Date:           day.Date,
		StartTime:      t.String(),
		EndTime:        end.String(),
		Comment:        comment,
		IdempotencyKey: uuid.NewString(),
	}
	appt, err := v.api.CreateAppointment(ctx, req)
	if err != nil {
		if apiclient.IsRejection(err) {
			metrics.IncBooking("rejected_server")
			return nil, fmt.Errorf("%w: %w", ErrRejected, err)
		}
		metrics.IncBooking("error")
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	metrics.IncBooking("created")

	v.mu.Lock()
	if v.day == day {
		next := *day
		next.booked = append(append([]slots.TimeRange{}, day.booked...), slots.TimeRange{Start: t, End: end})
		next.refresh(v.earliest(day.start, now))
		v.day = &next
	}
	v.mu.Unlock()

	v.logger.Info().Int64("teacher_id", day.TeacherID).Str("date", day.Date).
		Str("start", req.StartTime).Int("duration", duration).Msg("appointment booked")

	if v.bus != nil {
		payload := BookingCreatedPayload{
			AppointmentID: appt.ID,
			TeacherID:     day.TeacherID,
			Date:          day.Date,
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
		}
		if err := v.bus.PublishJSON(events.BookingCreated, v.sessionID, payload); err != nil {
			v.logger.Error().Err(err).Msg("publish booking event")
		}
	}
	return appt, nil
}

func (v *BookingView) Close() {
	v.tracker.Stop()
}

func (v *BookingView) checkWindow(dayStart, now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if dayStart.Before(today) || dayStart.After(now.Add(v.rules.Get().MaxAdvance())) {
		return fmt.Errorf("%w: %s", ErrOutsideWindow, dayStart.Format(dateLayout))
	}
	return nil
}

// earliest returns the first start time on the day that respects the minimum
// advance notice.
func (v *BookingView) earliest(dayStart, now time.Time) slots.TimeOfDay {
	cutoff := now.Add(v.rules.Get().MinAdvance())
	if !cutoff.After(dayStart) {
		return 0
	}
	mins := math.Ceil(cutoff.Sub(dayStart).Minutes())
	if mins > slots.MinutesPerDay {
		return slots.MinutesPerDay + 1
	}
	return slots.TimeOfDay(mins)
}

func (v *BookingView) choices() []int {
	if c := v.rules.Get().DurationChoices; len(c) > 0 {
		return c
	}
	return slots.DurationChoices
}

func (v *BookingView) allowedDuration(d int) bool {
	for _, c := range v.choices() {
		if c == d {
			return true
		}
	}
	return false
}

func (d *BookingDay) refresh(earliest slots.TimeOfDay) {
	d.Availability = rangeStrings(d.ranges)
	d.Booked = rangeStrings(d.booked)
	d.Slots = slots.Slots(d.ranges, d.booked)
	d.StartTimes = make([]string, 0)
	for i, s := range d.Slots {
		start := slots.MustParse(s.Start)
		if start < earliest {
			d.Slots[i].Available = false
			continue
		}
		if s.Available {
			d.StartTimes = append(d.StartTimes, s.Start)
		}
	}
}

func rangeStrings(ranges []slots.TimeRange) []string {
	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = r.String()
	}
	return out
}
