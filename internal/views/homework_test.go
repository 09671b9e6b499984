package views

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tutorportal/internal/apiclient"
	"tutorportal/internal/homework"
	"tutorportal/internal/model"
)

var testNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func samplePage() *apiclient.HomeworkPage {
	return &apiclient.HomeworkPage{
		Items: []model.Homework{
			{ID: 1, Title: "Essay", Deadline: testNow.Add(24 * time.Hour)},
			{ID: 2, Title: "Quiz", Deadline: testNow.Add(-time.Hour)},
			{ID: 3, Title: "Poem", Deadline: testNow.Add(-time.Hour), Submission: &model.Submission{ID: 9}},
			{ID: 4, Title: "Lab", Deadline: testNow, Submission: &model.Submission{ID: 10, Status: "Perfect", Comment: "well done"}},
		},
		Malformed: []apiclient.Malformed{
			{Index: 4, ID: 5, Err: model.ErrMalformed},
		},
	}
}

func TestBuildHomeworkList(t *testing.T) {
	list := BuildHomeworkList(42, samplePage(), testNow)

	require.Len(t, list.Items, 5)
	want := []homework.Status{
		homework.StatusPending,
		homework.StatusOverdue,
		homework.StatusSubmitted,
		homework.StatusGraded,
		homework.StatusInvalid,
	}
	for i, st := range want {
		assert.Equal(t, st, list.Items[i].Status, "item %d", i)
	}

	assert.Equal(t, "Perfect", list.Items[3].Grade)
	assert.Equal(t, 5, list.Items[3].Points)
	assert.Equal(t, "well done", list.Items[3].Comment)
	assert.Equal(t, int64(5), list.Items[4].ID)
	assert.NotEmpty(t, list.Items[4].Problem)

	assert.Equal(t, homework.Summary{Pending: 1, Submitted: 1, Graded: 1, Overdue: 1, Invalid: 1, Points: 5}, list.Summary)

	item, ok := list.Find(3)
	assert.True(t, ok)
	assert.Equal(t, "Poem", item.Title)
	_, ok = list.Find(99)
	assert.False(t, ok)
}

func TestHomeworkView_Load(t *testing.T) {
	api := new(mockAPI)
	api.On("Homeworks", mock.Anything, int64(42)).Return(samplePage(), nil)

	v := NewHomeworkView(api, testLogger())
	list, err := v.Load(context.Background(), 42, testNow)
	require.NoError(t, err)
	assert.Len(t, list.Items, 5)

	last, ok := v.Last()
	require.True(t, ok)
	assert.Equal(t, list, last)
	api.AssertExpectations(t)
}

func TestHomeworkView_LoadErrorKeepsPrevious(t *testing.T) {
	api := new(mockAPI)
	api.On("Homeworks", mock.Anything, int64(1)).Return(samplePage(), nil).Once()
	api.On("Homeworks", mock.Anything, int64(1)).Return(nil, errors.New("boom")).Once()

	v := NewHomeworkView(api, testLogger())
	_, err := v.Load(context.Background(), 1, testNow)
	require.NoError(t, err)

	_, err = v.Load(context.Background(), 1, testNow)
	assert.EqualError(t, err, "boom")

	last, ok := v.Last()
	require.True(t, ok)
	assert.Len(t, last.Items, 5)
}

func TestHomeworkView_StaleResponseDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	api := new(mockAPI)
	api.On("Homeworks", mock.Anything, int64(1)).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(samplePage(), nil)
	api.On("Homeworks", mock.Anything, int64(2)).Return(&apiclient.HomeworkPage{}, nil)

	v := NewHomeworkView(api, testLogger())

	errs := make(chan error, 1)
	go func() {
		_, err := v.Load(context.Background(), 1, testNow)
		errs <- err
	}()
	<-started

	list, err := v.Load(context.Background(), 2, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.StudentID)

	close(release)
	assert.ErrorIs(t, <-errs, ErrSuperseded)

	last, ok := v.Last()
	require.True(t, ok)
	assert.Equal(t, int64(2), last.StudentID)
}

func TestHomeworkView_ClosedDropsResults(t *testing.T) {
	api := new(mockAPI)
	api.On("Homeworks", mock.Anything, int64(1)).Return(samplePage(), nil)

	v := NewHomeworkView(api, testLogger())
	v.Close()

	_, err := v.Load(context.Background(), 1, testNow)
	assert.ErrorIs(t, err, ErrSuperseded)
	_, ok := v.Last()
	assert.False(t, ok)
}

func TestRankingView_Load(t *testing.T) {
	api := new(mockAPI)
	api.On("GroupResults", mock.Anything, int64(7)).Return(&apiclient.ResultPage{
		Items: []model.Result{
			{StudentID: 1, StudentName: "Bob", HomeworkID: 1, Status: "Good"},
			{StudentID: 2, StudentName: "Amy", HomeworkID: 1, Status: "Perfect"},
			{StudentID: 1, StudentName: "Bob", HomeworkID: 2, Status: "Bad"},
			{StudentID: 3, StudentName: "Cid", HomeworkID: 1, Status: "pending"},
		},
		Malformed: []apiclient.Malformed{{Index: 4, Err: model.ErrMalformed}},
	}, nil)

	v := NewRankingView(api, testLogger())
	r, err := v.Load(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, r.Standings, 3)
	assert.Equal(t, "Amy", r.Standings[0].StudentName)
	assert.Equal(t, 1, r.Standings[0].Place)
	assert.Equal(t, "Bob", r.Standings[1].StudentName)
	assert.Equal(t, 1, r.Standings[1].Place)
	assert.Equal(t, 5, r.Standings[1].Points)
	assert.Equal(t, 3, r.Standings[2].Place)
	assert.Equal(t, 1, r.Skipped)

	last, ok := v.Last()
	require.True(t, ok)
	assert.Equal(t, r, last)
}
