package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"tutorportal/internal/metrics"
	"tutorportal/internal/model"
	"tutorportal/internal/nav"
	"tutorportal/internal/report"
	"tutorportal/internal/slots"
	"tutorportal/internal/views"
)

// BookRequest is the body of POST /api/booking.
// DurationLabel ("1 h 30 min") is accepted in place of Duration.
type BookRequest struct {
	TeacherID     int64  `json:"teacherId,omitempty"`
	Date          string `json:"date,omitempty"`
	Start         string `json:"start"`
	Duration      int    `json:"duration"`
	DurationLabel string `json:"durationLabel,omitempty"`
	Comment       string `json:"comment,omitempty"`
}

// SlotsResponse is the booking view of a day, optionally with the durations
// bookable at a chosen start.
type SlotsResponse struct {
	*views.BookingDay
	Start     string   `json:"start,omitempty"`
	Durations []int    `json:"durations,omitempty"`
	Labels    []string `json:"durationLabels,omitempty"`
}

func queryID(r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// handleHomeworks returns the homework list with derived statuses.
// GET /api/homeworks?student_id=
func (s *HTTPServer) handleHomeworks(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("homeworks")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rs := s.session(w, r)
	if rs == nil {
		return
	}
	st, ok := s.allowed(w, r, rs, nav.ViewHomeworks)
	if !ok {
		return
	}

	studentID, ok := views.StudentFor(st)
	if st.Role != model.RoleStudent {
		if id, given := queryID(r, "student_id"); given {
			studentID, ok = id, true
		}
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	list, err := rs.sv.set.Homework.Load(r.Context(), studentID, s.now())
	if err != nil {
		s.writeFailure(w, "homeworks", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleHomeworkDetail returns one homework of the student the user looks at.
// GET /api/homeworks/{id}
func (s *HTTPServer) handleHomeworkDetail(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("homework_detail")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/homeworks/"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid homework id")
		return
	}
	rs := s.session(w, r)
	if rs == nil {
		return
	}
	st, ok := s.allowed(w, r, rs, nav.ViewHomeworkDetail)
	if !ok {
		return
	}

	item, err := rs.sv.set.HomeworkDetail(r.Context(), st, id)
	if err != nil {
		s.writeFailure(w, "homework_detail", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleRanking ranks the students of a group by points.
// GET /api/rankings?group_id=
func (s *HTTPServer) handleRanking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rankings")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	groupID, ok := queryID(r, "group_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "group_id is required")
		return
	}
	rs := s.session(w, r)
	if rs == nil {
		return
	}
	if _, ok := s.allowed(w, r, rs, nav.ViewRanking); !ok {
		return
	}

	ranking, err := rs.sv.set.Ranking.Load(r.Context(), groupID)
	if err != nil {
		s.writeFailure(w, "rankings", err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

// handleBookingSlots loads the bookable start times of a teacher on a date.
// GET /api/booking/slots?teacher_id=&date=YYYY-MM-DD[&start=HH:MM]
func (s *HTTPServer) handleBookingSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("booking_slots")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	teacherID, ok := queryID(r, "teacher_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "teacher_id is required")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	rs := s.session(w, r)
	if rs == nil {
		return
	}
	if _, ok := s.allowed(w, r, rs, nav.ViewBooking); !ok {
		return
	}

	booking := rs.sv.set.Booking
	day, err := booking.Load(r.Context(), teacherID, date)
	if err != nil {
		s.writeFailure(w, "booking_slots", err)
		return
	}

	resp := SlotsResponse{BookingDay: day}
	if start := r.URL.Query().Get("start"); start != "" {
		durations, err := booking.Durations(start)
		if err != nil {
			s.writeFailure(w, "booking_slots", err)
			return
		}
		resp.Start = start
		resp.Durations = durations
		for _, d := range durations {
			resp.Labels = append(resp.Labels, slots.FormatDuration(d))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBook books a slot of the loaded day. When teacherId and date name
// another day it is loaded first.
// POST /api/booking
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	var req BookRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Duration <= 0 && req.DurationLabel != "" {
		req.Duration = slots.ParseDuration(req.DurationLabel)
	}
	if req.Start == "" || req.Duration <= 0 {
		writeError(w, http.StatusBadRequest, "start and duration are required")
		return
	}

	rs := s.session(w, r)
	if rs == nil {
		return
	}
	if _, ok := s.allowed(w, r, rs, nav.ViewBooking); !ok {
		return
	}

	booking := rs.sv.set.Booking
	day, loaded := booking.Current()
	if req.TeacherID > 0 && req.Date != "" && (!loaded || day.TeacherID != req.TeacherID || day.Date != req.Date) {
		if _, err := booking.Load(r.Context(), req.TeacherID, req.Date); err != nil {
			s.writeFailure(w, "book", err)
			return
		}
	}

	appt, err := booking.Book(r.Context(), req.Start, req.Duration, req.Comment)
	if err != nil {
		s.writeFailure(w, "book", err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// handleGradesReport exports the results of a group as XLSX.
// GET /api/reports/grades.xlsx?group_id=
func (s *HTTPServer) handleGradesReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("grades_report")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	groupID, ok := queryID(r, "group_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "group_id is required")
		return
	}
	rs := s.session(w, r)
	if rs == nil {
		return
	}
	if _, ok := s.allowed(w, r, rs, nav.ViewGroups); !ok {
		return
	}

	page, err := rs.sv.client.GroupResults(r.Context(), groupID)
	if err != nil {
		s.writeFailure(w, "grades_report", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\"grades_"+strconv.FormatInt(groupID, 10)+".xlsx\"")
	if err := report.WriteGrades(w, groupID, page.Items); err != nil {
		s.logger.Error().Err(err).Int64("group_id", groupID).Msg("write grades report")
	}
}
