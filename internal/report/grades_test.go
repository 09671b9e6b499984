package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tutorportal/internal/model"
)

func TestWriteGrades(t *testing.T) {
	results := []model.Result{
		{StudentID: 2, StudentName: "Bob", HomeworkID: 2, Status: "Bad"},
		{StudentID: 1, StudentName: "Amy", HomeworkID: 1, Status: "Perfect"},
		{StudentID: 2, StudentName: "Bob", HomeworkID: 1, Status: "Good"},
		{StudentID: 3, StudentName: "Cid", HomeworkID: 1, Status: "submitted"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGrades(&buf, 7, results))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetRanking, SheetResults}, f.GetSheetList())

	ranking, err := f.GetRows(SheetRanking)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Place", "Student", "Points", "Graded"},
		{"1", "Amy", "5", "1"},
		{"1", "Bob", "5", "2"},
		{"3", "Cid", "0", "0"},
	}, ranking)

	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Student", "Homework", "Grade", "Points"},
		{"Amy", "1", "Perfect", "5"},
		{"Bob", "1", "Good", "3"},
		{"Bob", "2", "Bad", "2"},
		{"Cid", "1", "", "0"},
	}, rows)
}

func TestSheetWriter_RequiresSheet(t *testing.T) {
	w := newSheetWriter()
	defer w.close()
	assert.ErrorIs(t, w.write("x"), errNoSheet)
}

func TestSheetWriter_TruncatesLongNames(t *testing.T) {
	w := newSheetWriter()
	defer w.close()
	require.NoError(t, w.addSheet("A sheet name that is far longer than Excel allows"))
	assert.Len(t, w.sheet, maxSheetName)
}
