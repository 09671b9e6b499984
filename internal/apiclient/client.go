// Package apiclient talks to the school REST API. It injects the bearer token
// of the current session, centralises 401 handling and validates response
// shapes before anything downstream sees them.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tutorportal/internal/metrics"
	"tutorportal/internal/model"
)

// TokenFunc returns the bearer token of the current session.
type TokenFunc func(ctx context.Context) (string, error)

// Client is an HTTP client for the school API. Copies made with ForSession
// share the transport, limiter and cache.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration

	token          TokenFunc
	onUnauthorized func()
}

// NewClient constructs a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// UseRedisCache configures optional Redis caching for schedule endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit throttles outgoing requests.
func (c *Client) UseRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.limiter = nil
		return
	}
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// ForSession returns a copy authenticating with token. onUnauthorized is
// called whenever the school API answers 401.
func (c *Client) ForSession(token TokenFunc, onUnauthorized func()) *Client {
	cp := *c
	cp.token = token
	cp.onUnauthorized = onUnauthorized
	return &cp
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := c.send(ctx, "login", http.MethodPost, "/auth/login", req, &resp, false); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login: empty token: %w", model.ErrMalformed)
	}
	if !resp.User.Role.Valid() {
		return nil, fmt.Errorf("login: unknown role %q: %w", resp.User.Role, model.ErrMalformed)
	}
	return &resp, nil
}

// HomeworkPage is the validated homework list of a student.
type HomeworkPage struct {
	Items     []model.Homework
	Malformed []Malformed
}

// Homeworks fetches a student's homeworks. Records failing validation are
// reported in Malformed instead of Items.
func (c *Client) Homeworks(ctx context.Context, studentID int64) (*HomeworkPage, error) {
	path := "/homeworks"
	if studentID > 0 {
		path += "?studentId=" + strconv.FormatInt(studentID, 10)
	}
	var raw []model.Homework
	if err := c.get(ctx, "homeworks", path, &raw); err != nil {
		return nil, err
	}
	items, bad := partition(raw, (*model.Homework).Validate, func(h *model.Homework) int64 { return h.ID })
	return &HomeworkPage{Items: items, Malformed: bad}, nil
}

// ResultPage is the validated list of homework results of a group.
type ResultPage struct {
	Items     []model.Result
	Malformed []Malformed
}

// GroupResults fetches homework results of every student in a group.
func (c *Client) GroupResults(ctx context.Context, groupID int64) (*ResultPage, error) {
	var raw []model.Result
	path := fmt.Sprintf("/groups/%d/results", groupID)
	if err := c.get(ctx, "group_results", path, &raw); err != nil {
		return nil, err
	}
	items, bad := partition(raw, (*model.Result).Validate, func(r *model.Result) int64 { return r.StudentID })
	return &ResultPage{Items: items, Malformed: bad}, nil
}

// TeacherSchedule fetches the weekly availability of a teacher. A malformed
// schedule is an error: availability must not be guessed.
func (c *Client) TeacherSchedule(ctx context.Context, teacherID int64) (*model.TeacherSchedule, error) {
	path := fmt.Sprintf("/teachers/%d/schedule", teacherID)
	cacheKey := fmt.Sprintf("portal:schedule:%d", teacherID)

	var resp model.TeacherSchedule
	if !c.readCache(ctx, cacheKey, &resp) {
		if err := c.get(ctx, "teacher_schedule", path, &resp); err != nil {
			return nil, err
		}
		if err := resp.Validate(); err != nil {
			return nil, fmt.Errorf("teacher %d schedule: %w", teacherID, err)
		}
		c.writeCache(ctx, cacheKey, resp)
	}
	return &resp, nil
}

// Appointments fetches the slots already booked with a teacher on date
// (YYYY-MM-DD).
func (c *Client) Appointments(ctx context.Context, teacherID int64, date string) ([]model.Appointment, error) {
	path := fmt.Sprintf("/teachers/%d/appointments?date=%s", teacherID, url.QueryEscape(date))
	cacheKey := appointmentsKey(teacherID, date)

	var resp []model.Appointment
	if !c.readCache(ctx, cacheKey, &resp) {
		if err := c.get(ctx, "appointments", path, &resp); err != nil {
			return nil, err
		}
		for i := range resp {
			if err := resp[i].Validate(); err != nil {
				return nil, fmt.Errorf("teacher %d appointments on %s: %w", teacherID, date, err)
			}
		}
		c.writeCache(ctx, cacheKey, resp)
	}
	return resp, nil
}

// CreateAppointment books a slot. The school API is the final authority: a
// rejection is returned as *HTTPError even if local checks passed.
func (c *Client) CreateAppointment(ctx context.Context, req model.AppointmentRequest) (*model.Appointment, error) {
	var resp model.Appointment
	if err := c.send(ctx, "create_appointment", http.MethodPost, "/appointments", req, &resp, true); err != nil {
		return nil, err
	}
	c.invalidate(ctx, appointmentsKey(req.TeacherID, req.Date))
	return &resp, nil
}

// HealthCheck checks if the school API is available.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func appointmentsKey(teacherID int64, date string) string {
	return fmt.Sprintf("portal:appointments:%d:%s", teacherID, date)
}

func partition[T any](raw []T, validate func(*T) error, id func(*T) int64) ([]T, []Malformed) {
	items := make([]T, 0, len(raw))
	var bad []Malformed
	for i := range raw {
		if err := validate(&raw[i]); err != nil {
			bad = append(bad, Malformed{Index: i, ID: id(&raw[i]), Err: err})
			continue
		}
		items = append(items, raw[i])
	}
	return items, bad
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		metrics.IncCache(false)
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		metrics.IncCache(false)
		return false
	}
	metrics.IncCache(true)
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *Client) invalidate(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, key).Err()
}

func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	return c.send(ctx, endpoint, http.MethodGet, path, nil, out, true)
}

func (c *Client) send(ctx context.Context, endpoint, method, path string, body, out any, auth bool) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if err := c.addAuth(ctx, req); err != nil {
			return err
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return c.do(req, endpoint, out)
}

func (c *Client) addAuth(ctx context.Context, req *http.Request) error {
	if c.token == nil {
		return ErrNoToken
	}
	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		return ErrNoToken
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *Client) do(req *http.Request, endpoint string, out any) error {
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(endpoint, "error", time.Since(started).Seconds())
		return err
	}
	defer resp.Body.Close()

	metrics.ObserveUpstream(endpoint, fmt.Sprintf("%dxx", resp.StatusCode/100), time.Since(started).Seconds())
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(started)).
		Msg("school api request")

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	if resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty body: %w", endpoint, model.ErrMalformed)
		}
		return fmt.Errorf("%s: decode: %v: %w", endpoint, err, model.ErrMalformed)
	}
	return nil
}

func readMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(data))
}
