package views

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tutorportal/internal/apiclient"
	"tutorportal/internal/homework"
	"tutorportal/internal/metrics"
	"tutorportal/internal/request"
)

// HomeworkItem is one row of the homework list.
type HomeworkItem struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	TeacherName string          `json:"teacherName,omitempty"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	Status      homework.Status `json:"status"`
	Grade       string          `json:"grade,omitempty"`
	Points      int             `json:"points"`
	Comment     string          `json:"comment,omitempty"`
	FileURL     string          `json:"fileUrl,omitempty"`
	Problem     string          `json:"problem,omitempty"`
}

// HomeworkList is the homework view model.
type HomeworkList struct {
	StudentID int64            `json:"studentId"`
	Items     []HomeworkItem   `json:"items"`
	Summary   homework.Summary `json:"summary"`
}

// Find returns the item with the given id.
func (l *HomeworkList) Find(id int64) (HomeworkItem, bool) {
	for _, it := range l.Items {
		if it.ID == id {
			return it, true
		}
	}
	return HomeworkItem{}, false
}

// BuildHomeworkList derives the status of every homework at now. Records that
// failed validation are listed with the invalid status.
func BuildHomeworkList(studentID int64, page *apiclient.HomeworkPage, now time.Time) HomeworkList {
	list := HomeworkList{
		StudentID: studentID,
		Items:     make([]HomeworkItem, 0, len(page.Items)+len(page.Malformed)),
		Summary:   homework.Summarize(page.Items, now),
	}

	for _, hw := range page.Items {
		status, err := homework.DeriveStatus(hw, now)
		deadline := hw.Deadline
		item := HomeworkItem{
			ID:          hw.ID,
			Title:       hw.Title,
			Description: hw.Description,
			TeacherName: hw.TeacherName,
			Deadline:    &deadline,
			Status:      status,
		}
		if err != nil {
			item.Problem = err.Error()
		}
		if sub := hw.Submission; sub != nil {
			item.Comment = sub.Comment
			item.FileURL = sub.FileURL
			if status == homework.StatusGraded {
				item.Grade = sub.Status
				item.Points = homework.PointsFor(sub.Status)
			}
		}
		list.Items = append(list.Items, item)
	}

	for _, bad := range page.Malformed {
		list.Items = append(list.Items, HomeworkItem{
			ID:      bad.ID,
			Status:  homework.StatusInvalid,
			Problem: bad.Err.Error(),
		})
		list.Summary.Invalid++
	}
	return list
}

// HomeworkView loads the homework list of a student.
type HomeworkView struct {
	api     API
	tracker *request.Tracker
	logger  *zerolog.Logger

	mu   sync.RWMutex
	last *HomeworkList
}

func NewHomeworkView(api API, logger *zerolog.Logger) *HomeworkView {
	return &HomeworkView{api: api, tracker: request.NewTracker(), logger: logger}
}

// Load fetches the homeworks of studentID and derives their statuses at now.
// Calling Load again retries.
func (v *HomeworkView) Load(ctx context.Context, studentID int64, now time.Time) (*HomeworkList, error) {
	h, ctx := v.tracker.Begin(ctx)
	defer h.Cancel()

	page, err := v.api.Homeworks(ctx, studentID)
	if err != nil {
		return nil, loadFailure(h, err)
	}

	list := BuildHomeworkList(studentID, page, now)
	if !h.Apply(func() {
		v.mu.Lock()
		v.last = &list
		v.mu.Unlock()
	}) {
		return nil, ErrSuperseded
	}

	for _, it := range list.Items {
		metrics.IncHomeworkStatus(string(it.Status))
	}
	if n := len(page.Malformed); n > 0 {
		v.logger.Warn().Int("count", n).Int64("student_id", studentID).Msg("malformed homeworks received")
	}
	return &list, nil
}

// Last returns the most recently applied list.
func (v *HomeworkView) Last() (*HomeworkList, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.last, v.last != nil
}

func (v *HomeworkView) Close() {
	v.tracker.Stop()
}
