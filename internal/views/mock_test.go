package views

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tutorportal/internal/apiclient"
	"tutorportal/internal/model"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Homeworks(ctx context.Context, studentID int64) (*apiclient.HomeworkPage, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apiclient.HomeworkPage), args.Error(1)
}

func (m *mockAPI) GroupResults(ctx context.Context, groupID int64) (*apiclient.ResultPage, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apiclient.ResultPage), args.Error(1)
}

func (m *mockAPI) TeacherSchedule(ctx context.Context, teacherID int64) (*model.TeacherSchedule, error) {
	args := m.Called(ctx, teacherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TeacherSchedule), args.Error(1)
}

func (m *mockAPI) Appointments(ctx context.Context, teacherID int64, date string) ([]model.Appointment, error) {
	args := m.Called(ctx, teacherID, date)
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *mockAPI) CreateAppointment(ctx context.Context, req model.AppointmentRequest) (*model.Appointment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}
