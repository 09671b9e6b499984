// Package homework derives the lifecycle status of homeworks and the points
// students collect for graded submissions.
package homework

import (
	"errors"
	"time"

	"tutorportal/internal/model"
)

// Status is the derived lifecycle state of a homework. It is never stored.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusGraded    Status = "graded"
	StatusOverdue   Status = "overdue"
	StatusInvalid   Status = "invalid"
)

var ErrMissingDeadline = errors.New("homework has no deadline")

// DeriveStatus maps a homework to its status at instant now.
//
// Overdue only applies to homeworks without a submission: a late submission
// is still submitted or graded.
func DeriveStatus(hw model.Homework, now time.Time) (Status, error) {
	if hw.Deadline.IsZero() {
		return StatusInvalid, ErrMissingDeadline
	}
	if hw.Submission == nil {
		if hw.Deadline.Before(now) {
			return StatusOverdue, nil
		}
		return StatusPending, nil
	}
	if IsGraded(hw.Submission.Status) {
		return StatusGraded, nil
	}
	return StatusSubmitted, nil
}

// Summary counts homeworks per status.
type Summary struct {
	Pending   int `json:"pending"`
	Submitted int `json:"submitted"`
	Graded    int `json:"graded"`
	Overdue   int `json:"overdue"`
	Invalid   int `json:"invalid"`
	Points    int `json:"points"`
}

// Total returns the number of homeworks counted.
func (s Summary) Total() int {
	return s.Pending + s.Submitted + s.Graded + s.Overdue + s.Invalid
}

// Summarize derives the status of every homework and aggregates the counts
// together with the points earned for graded ones.
func Summarize(hws []model.Homework, now time.Time) Summary {
	var s Summary
	for _, hw := range hws {
		st, _ := DeriveStatus(hw, now)
		switch st {
		case StatusPending:
			s.Pending++
		case StatusSubmitted:
			s.Submitted++
		case StatusGraded:
			s.Graded++
			s.Points += PointsFor(hw.Submission.Status)
		case StatusOverdue:
			s.Overdue++
		default:
			s.Invalid++
		}
	}
	return s
}
