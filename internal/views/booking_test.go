package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tutorportal/internal/apiclient"
	"tutorportal/internal/config"
	"tutorportal/internal/events"
	"tutorportal/internal/model"
)

const monday = "2026-10-19"

func mondaySchedule() *model.TeacherSchedule {
	return &model.TeacherSchedule{
		TeacherID: 3,
		Days: []model.DaySchedule{
			{DayOfWeek: 1, TimeSlots: []model.TimeSlot{
				{StartTime: "09:00", EndTime: "12:00"},
				{StartTime: "14:00", EndTime: "16:00"},
			}},
			{DayOfWeek: 3, TimeSlots: []model.TimeSlot{{StartTime: "10:00", EndTime: "11:00"}}},
		},
	}
}

func mondayAppointments() []model.Appointment {
	return []model.Appointment{
		{ID: 1, Date: monday, TimeSlot: model.TimeSlot{StartTime: "10:00", EndTime: "11:00"}},
		{ID: 2, Date: "2026-10-20", TimeSlot: model.TimeSlot{StartTime: "09:00", EndTime: "12:00"}},
	}
}

func newBookingView(t *testing.T, api API, bus *events.EventBus, rules config.BookingRules, now time.Time) *BookingView {
	t.Helper()
	return NewBookingView(api, bus, NewRules(rules), "sess-1", func() time.Time { return now }, testLogger())
}

func loadedBookingAPI() *mockAPI {
	api := new(mockAPI)
	api.On("TeacherSchedule", mock.Anything, int64(3)).Return(mondaySchedule(), nil)
	api.On("Appointments", mock.Anything, int64(3), monday).Return(mondayAppointments(), nil)
	return api
}

func TestISOWeekday(t *testing.T) {
	assert.Equal(t, 1, ISOWeekday(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 7, ISOWeekday(time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)))
}

func TestBookingView_Load(t *testing.T) {
	api := loadedBookingAPI()
	v := newBookingView(t, api, nil, config.BookingRules{}, testNow)

	day, err := v.Load(context.Background(), 3, monday)
	require.NoError(t, err)

	assert.Equal(t, 1, day.DayOfWeek)
	assert.Equal(t, []string{"09:00-12:00", "14:00-16:00"}, day.Availability)
	assert.Equal(t, []string{"10:00-11:00"}, day.Booked)
	assert.Equal(t, []string{"09:00", "09:30", "11:00", "11:30", "14:00", "14:30", "15:00", "15:30"}, day.StartTimes)
	assert.Len(t, day.Slots, 10)

	durations, err := v.Durations("09:00")
	require.NoError(t, err)
	assert.Equal(t, []int{30, 60}, durations)

	durations, err = v.Durations("14:00")
	require.NoError(t, err)
	assert.Equal(t, []int{30, 60, 90, 120}, durations)

	durations, err = v.Durations("10:30")
	require.NoError(t, err)
	assert.Empty(t, durations)
}

func TestBookingView_MinAdvanceHidesEarlyStarts(t *testing.T) {
	api := loadedBookingAPI()
	now := time.Date(2026, 10, 19, 9, 10, 0, 0, time.UTC)
	v := newBookingView(t, api, nil, config.BookingRules{MinAdvanceMinutes: 30}, now)

	day, err := v.Load(context.Background(), 3, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"11:00", "11:30", "14:00", "14:30", "15:00", "15:30"}, day.StartTimes)

	durations, err := v.Durations("09:30")
	require.NoError(t, err)
	assert.Empty(t, durations)

	_, err = v.Book(context.Background(), "09:30", 30, "")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	api.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
}

func TestBookingView_LoadErrors(t *testing.T) {
	api := new(mockAPI)
	api.On("TeacherSchedule", mock.Anything, int64(3)).Return(mondaySchedule(), nil)
	api.On("Appointments", mock.Anything, int64(3), monday).Return([]model.Appointment{
		{ID: 1, Date: monday, TimeSlot: model.TimeSlot{StartTime: "25:00", EndTime: "26:00"}},
	}, nil)
	v := newBookingView(t, api, nil, config.BookingRules{MaxAdvanceDays: 3}, testNow)
	ctx := context.Background()

	_, err := v.Load(ctx, 3, "19.10.2026")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = v.Load(ctx, 3, "2026-10-18")
	assert.ErrorIs(t, err, ErrOutsideWindow)

	_, err = v.Load(ctx, 3, "2026-10-30")
	assert.ErrorIs(t, err, ErrOutsideWindow)

	_, err = v.Load(ctx, 3, monday)
	assert.ErrorIs(t, err, model.ErrMalformed)

	_, ok := v.Current()
	assert.False(t, ok)
	_, err = v.Durations("09:00")
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = v.Book(ctx, "09:00", 30, "")
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestBookingView_BookRejectedLocally(t *testing.T) {
	api := loadedBookingAPI()
	v := newBookingView(t, api, nil, config.BookingRules{}, testNow)
	ctx := context.Background()
	_, err := v.Load(ctx, 3, monday)
	require.NoError(t, err)

	tests := []struct {
		name     string
		start    string
		duration int
	}{
		{"overlaps booked", "09:30", 60},
		{"inside booked", "10:30", 30},
		{"past range end", "11:30", 60},
		{"between ranges", "12:30", 30},
		{"not offered duration", "14:00", 45},
		{"zero duration", "14:00", 0},
		{"garbage time", "nine", 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Book(ctx, tt.start, tt.duration, "")
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		})
	}
	api.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
}

func TestBookingView_BookSuccess(t *testing.T) {
	api := loadedBookingAPI()
	api.On("CreateAppointment", mock.Anything, mock.MatchedBy(func(req model.AppointmentRequest) bool {
		return req.TeacherID == 3 && req.Date == monday &&
			req.StartTime == "09:00" && req.EndTime == "10:00" &&
			req.Comment == "algebra" && req.IdempotencyKey != ""
	})).Return(&model.Appointment{ID: 55, TeacherID: 3, Date: monday}, nil)

	bus := events.NewEventBus()
	var got []BookingCreatedPayload
	bus.Subscribe(events.BookingCreated, func(e events.Event) error {
		var p BookingCreatedPayload
		require.NoError(t, e.Decode(&p))
		assert.Equal(t, "sess-1", e.SessionID)
		got = append(got, p)
		return nil
	})

	v := newBookingView(t, api, bus, config.BookingRules{}, testNow)
	ctx := context.Background()
	_, err := v.Load(ctx, 3, monday)
	require.NoError(t, err)

	appt, err := v.Book(ctx, "09:00", 60, "algebra")
	require.NoError(t, err)
	assert.Equal(t, int64(55), appt.ID)

	require.Len(t, got, 1)
	assert.Equal(t, BookingCreatedPayload{AppointmentID: 55, TeacherID: 3, Date: monday, StartTime: "09:00", EndTime: "10:00"}, got[0])

	day, ok := v.Current()
	require.True(t, ok)
	assert.Equal(t, []string{"11:00", "11:30", "14:00", "14:30", "15:00", "15:30"}, day.StartTimes)
	assert.Equal(t, []string{"10:00-11:00", "09:00-10:00"}, day.Booked)

	_, err = v.Book(ctx, "09:00", 30, "")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	api.AssertNumberOfCalls(t, "CreateAppointment", 1)
}

func TestBookingView_ServerRejectionIsAuthoritative(t *testing.T) {
	api := loadedBookingAPI()
	api.On("CreateAppointment", mock.Anything, mock.Anything).
		Return(nil, &apiclient.HTTPError{StatusCode: 409, Message: "slot already taken"})

	v := newBookingView(t, api, nil, config.BookingRules{}, testNow)
	ctx := context.Background()
	_, err := v.Load(ctx, 3, monday)
	require.NoError(t, err)

	_, err = v.Book(ctx, "14:00", 30, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, 409, apiclient.StatusCode(err))

	day, _ := v.Current()
	assert.Contains(t, day.StartTimes, "14:00")
}

func TestRulesHotSwap(t *testing.T) {
	api := loadedBookingAPI()
	rules := NewRules(config.BookingRules{})
	v := NewBookingView(api, nil, rules, "s", func() time.Time { return testNow }, testLogger())
	_, err := v.Load(context.Background(), 3, monday)
	require.NoError(t, err)

	rules.Set(config.BookingRules{DurationChoices: []int{60}})
	durations, err := v.Durations("14:00")
	require.NoError(t, err)
	assert.Equal(t, []int{60}, durations)

	_, err = v.Book(context.Background(), "14:00", 30, "")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}
