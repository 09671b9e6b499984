package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformed marks a record received from the school API that does not have
// the shape the portal relies on.
var ErrMalformed = errors.New("malformed record")

// Submission is a student's answer to a homework.
type Submission struct {
	ID          int64      `json:"id"`
	Status      string     `json:"status,omitempty"` // grade label once graded
	Comment     string     `json:"comment,omitempty"`
	FileURL     string     `json:"fileUrl,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// Homework is an assignment with a deadline, optionally fulfilled by a submission.
type Homework struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	GroupID     int64       `json:"groupId,omitempty"`
	TeacherName string      `json:"teacherName,omitempty"`
	Deadline    time.Time   `json:"deadline"`
	Submission  *Submission `json:"submission,omitempty"`
}

// Validate checks the fields the status derivation depends on.
func (h *Homework) Validate() error {
	if h.ID <= 0 {
		return fmt.Errorf("homework: invalid id %d: %w", h.ID, ErrMalformed)
	}
	if h.Deadline.IsZero() {
		return fmt.Errorf("homework %d: missing deadline: %w", h.ID, ErrMalformed)
	}
	return nil
}

// Result is one graded (or not yet graded) homework of a student in a group.
type Result struct {
	StudentID   int64  `json:"studentId"`
	StudentName string `json:"studentName"`
	HomeworkID  int64  `json:"homeworkId"`
	Status      string `json:"status"`
}

// Validate checks that the result can be attributed to a student.
func (r *Result) Validate() error {
	if r.StudentID <= 0 {
		return fmt.Errorf("result for homework %d: missing student: %w", r.HomeworkID, ErrMalformed)
	}
	return nil
}
