package views

import (
	"sort"

	"tutorportal/internal/homework"
)

// GroupSheet is the staff overview of a group: each student's standing and
// grade label per homework.
type GroupSheet struct {
	GroupID   int64      `json:"groupId"`
	Homeworks []int64    `json:"homeworks"`
	Rows      []GroupRow `json:"rows"`
	Skipped   int        `json:"skipped"`
}

// GroupRow is one student of a GroupSheet.
type GroupRow struct {
	homework.Standing
	Grades map[int64]string `json:"grades"`
}

// BuildGroupSheet lays results out in ranking order.
func BuildGroupSheet(r *Ranking) *GroupSheet {
	grades := make(map[int64]map[int64]string)
	seen := make(map[int64]bool)
	sheet := &GroupSheet{GroupID: r.GroupID, Homeworks: []int64{}, Rows: []GroupRow{}, Skipped: r.Skipped}

	for _, res := range r.results {
		if grades[res.StudentID] == nil {
			grades[res.StudentID] = make(map[int64]string)
		}
		grades[res.StudentID][res.HomeworkID] = res.Status
		if !seen[res.HomeworkID] {
			seen[res.HomeworkID] = true
			sheet.Homeworks = append(sheet.Homeworks, res.HomeworkID)
		}
	}
	sort.Slice(sheet.Homeworks, func(i, j int) bool { return sheet.Homeworks[i] < sheet.Homeworks[j] })

	for _, st := range r.Standings {
		row := GroupRow{Standing: st, Grades: grades[st.StudentID]}
		if row.Grades == nil {
			row.Grades = map[int64]string{}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

