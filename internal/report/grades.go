package report

import (
	"fmt"
	"io"
	"sort"

	"tutorportal/internal/homework"
	"tutorportal/internal/model"
)

const (
	SheetRanking = "Ranking"
	SheetResults = "Results"
)

// WriteGrades writes a workbook with the ranking of a group and every
// result row behind it.
func WriteGrades(out io.Writer, groupID int64, results []model.Result) error {
	w := newSheetWriter()
	defer w.close()

	if err := w.addSheet(SheetRanking); err != nil {
		return err
	}
	if err := w.header("Place", "Student", "Points", "Graded"); err != nil {
		return err
	}
	for _, s := range homework.Rank(results) {
		if err := w.write(s.Place, s.StudentName, s.Points, s.Graded); err != nil {
			return err
		}
	}

	if err := w.addSheet(SheetResults); err != nil {
		return err
	}
	if err := w.header("Student", "Homework", "Grade", "Points"); err != nil {
		return err
	}
	rows := append([]model.Result(nil), results...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StudentName != rows[j].StudentName {
			return rows[i].StudentName < rows[j].StudentName
		}
		return rows[i].HomeworkID < rows[j].HomeworkID
	})
	for _, r := range rows {
		grade := r.Status
		if !homework.IsGraded(grade) {
			grade = ""
		}
		if err := w.write(r.StudentName, r.HomeworkID, grade, homework.PointsFor(r.Status)); err != nil {
			return err
		}
	}

	if err := w.save(out); err != nil {
		return fmt.Errorf("save group %d report: %w", groupID, err)
	}
	return nil
}
