package model

import (
	"fmt"
	"strings"
)

// TimeSlot is a "HH:MM"-"HH:MM" interval as the school API sends it.
type TimeSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Validate performs a shallow shape check; parsing happens in the slots package.
func (t TimeSlot) Validate() error {
	if strings.TrimSpace(t.StartTime) == "" || strings.TrimSpace(t.EndTime) == "" {
		return fmt.Errorf("time slot %q-%q: %w", t.StartTime, t.EndTime, ErrMalformed)
	}
	return nil
}

// DaySchedule holds a teacher's availability ranges for one day of week.
type DaySchedule struct {
	DayOfWeek int        `json:"dayOfWeek"` // 1-7 (Monday-Sunday)
	TimeSlots []TimeSlot `json:"timeSlots"`
}

// Validate checks the day number and every time slot.
func (d *DaySchedule) Validate() error {
	if d.DayOfWeek < 1 || d.DayOfWeek > 7 {
		return fmt.Errorf("day schedule: day of week %d: %w", d.DayOfWeek, ErrMalformed)
	}
	for _, ts := range d.TimeSlots {
		if err := ts.Validate(); err != nil {
			return fmt.Errorf("day %d: %w", d.DayOfWeek, err)
		}
	}
	return nil
}

// TeacherSchedule is the weekly availability of a teacher.
type TeacherSchedule struct {
	TeacherID int64         `json:"teacherId"`
	Days      []DaySchedule `json:"days"`
}

// Validate validates every day.
func (s *TeacherSchedule) Validate() error {
	for i := range s.Days {
		if err := s.Days[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ForDay returns the availability slots of the given day of week (1-7).
// Several entries for the same day are merged.
func (s *TeacherSchedule) ForDay(dayOfWeek int) []TimeSlot {
	var out []TimeSlot
	for _, d := range s.Days {
		if d.DayOfWeek == dayOfWeek {
			out = append(out, d.TimeSlots...)
		}
	}
	return out
}

// Appointment is an already booked slot of a teacher.
type Appointment struct {
	ID        int64    `json:"id"`
	TeacherID int64    `json:"teacherId,omitempty"`
	StudentID int64    `json:"studentId,omitempty"`
	Date      string   `json:"date"` // YYYY-MM-DD
	TimeSlot  TimeSlot `json:"timeSlot"`
}

// Validate checks the booked interval.
func (a *Appointment) Validate() error {
	if err := a.TimeSlot.Validate(); err != nil {
		return fmt.Errorf("appointment %d: %w", a.ID, err)
	}
	return nil
}

// AppointmentRequest is the body for creating a booking.
type AppointmentRequest struct {
	TeacherID      int64  `json:"teacherId"`
	Date           string `json:"date"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	Comment        string `json:"comment,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}
