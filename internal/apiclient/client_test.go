package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorportal/internal/model"
)

func staticToken(token string) TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second, nil), srv
}

func TestClient_InjectsBearerToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []model.Homework{})
	})

	_, err := client.ForSession(staticToken("secret"), nil).Homeworks(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestClient_NoToken(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.Homeworks(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = client.ForSession(staticToken(""), nil).Homeworks(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_UnauthorizedHook(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})

	hooks := 0
	_, err := client.ForSession(staticToken("old"), func() { hooks++ }).Homeworks(context.Background(), 1)

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Contains(t, err.Error(), "token expired")
	assert.Equal(t, 1, hooks)
}

func TestClient_HomeworksPartitionsMalformed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/homeworks", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("studentId"))
		_, _ = w.Write([]byte(`[
			{"id": 1, "title": "Essay", "deadline": "2024-01-01T00:00:00Z", "submission": null},
			{"id": 2, "title": "No deadline"},
			{"id": 3, "title": "Graded", "deadline": "2024-01-01T00:00:00Z", "submission": {"id": 9, "status": "Good"}}
		]`))
	})

	page, err := client.ForSession(staticToken("t"), nil).Homeworks(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, page.Items, 2)
	assert.Nil(t, page.Items[0].Submission)
	assert.Equal(t, "Good", page.Items[1].Submission.Status)

	require.Len(t, page.Malformed, 1)
	assert.Equal(t, 1, page.Malformed[0].Index)
	assert.Equal(t, int64(2), page.Malformed[0].ID)
	assert.ErrorIs(t, page.Malformed[0].Err, model.ErrMalformed)
}

func TestClient_DecodeFailureIsMalformed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	})

	_, err := client.ForSession(staticToken("t"), nil).Homeworks(context.Background(), 0)
	assert.ErrorIs(t, err, model.ErrMalformed)
}

func TestClient_TeacherScheduleValidation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.TeacherSchedule{
			TeacherID: 5,
			Days:      []model.DaySchedule{{DayOfWeek: 9}},
		})
	})

	_, err := client.ForSession(staticToken("t"), nil).TeacherSchedule(context.Background(), 5)
	assert.ErrorIs(t, err, model.ErrMalformed)
}

func TestClient_CacheAndInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var appointmentCalls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/teachers/3/appointments":
			appointmentCalls.Add(1)
			writeJSON(w, http.StatusOK, []model.Appointment{
				{ID: 1, Date: "2024-05-06", TimeSlot: model.TimeSlot{StartTime: "10:00", EndTime: "10:30"}},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/appointments":
			var req model.AppointmentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeJSON(w, http.StatusCreated, model.Appointment{ID: 2, Date: req.Date})
		default:
			http.NotFound(w, r)
		}
	})
	client.UseRedisCache(rdb, time.Minute)
	sess := client.ForSession(staticToken("t"), nil)
	ctx := context.Background()

	first, err := sess.Appointments(ctx, 3, "2024-05-06")
	require.NoError(t, err)
	second, err := sess.Appointments(ctx, 3, "2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), appointmentCalls.Load())

	created, err := sess.CreateAppointment(ctx, model.AppointmentRequest{
		TeacherID: 3, Date: "2024-05-06", StartTime: "11:00", EndTime: "12:00",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)

	_, err = sess.Appointments(ctx, 3, "2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, int32(2), appointmentCalls.Load())
}

func TestClient_ServerRejectionIsAuthoritative(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "slot already taken"})
	})

	_, err := client.ForSession(staticToken("t"), nil).CreateAppointment(context.Background(), model.AppointmentRequest{TeacherID: 1})
	require.Error(t, err)
	assert.True(t, IsRejection(err))
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "http 409: slot already taken", err.Error())
}

func TestClient_Login(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		var req model.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "pw" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad credentials"})
			return
		}
		writeJSON(w, http.StatusOK, model.LoginResponse{
			Token: "tok",
			User:  model.User{ID: 1, Name: "Ann", Role: model.RoleStudent},
		})
	})

	resp, err := client.Login(context.Background(), model.LoginRequest{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, model.RoleStudent, resp.User.Role)

	_, err = client.Login(context.Background(), model.LoginRequest{Email: "a@b.c", Password: "nope"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []model.Result{})
	})
	client.UseRateLimit(0.001, 1)
	sess := client.ForSession(staticToken("t"), nil)

	_, err := sess.GroupResults(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = sess.GroupResults(ctx, 1)
	assert.Error(t, err)
}

func TestClient_HealthCheck(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
	assert.NoError(t, client.HealthCheck(context.Background()))
}
