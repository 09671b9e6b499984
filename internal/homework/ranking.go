package homework

import (
	"sort"

	"tutorportal/internal/model"
)

// Standing is a student's position in a group ranking.
type Standing struct {
	Place       int    `json:"place"`
	StudentID   int64  `json:"studentId"`
	StudentName string `json:"studentName"`
	Points      int    `json:"points"`
	Graded      int    `json:"graded"`
}

// Rank sums the points of every student and orders them by points
// descending, then by name. Students with equal points share a place and the
// next place is skipped (1, 1, 3).
func Rank(results []model.Result) []Standing {
	byStudent := make(map[int64]*Standing)
	order := make([]int64, 0)

	for _, r := range results {
		st, ok := byStudent[r.StudentID]
		if !ok {
			st = &Standing{StudentID: r.StudentID, StudentName: r.StudentName}
			byStudent[r.StudentID] = st
			order = append(order, r.StudentID)
		}
		if IsGraded(r.Status) {
			st.Points += PointsFor(r.Status)
			st.Graded++
		}
	}

	standings := make([]Standing, 0, len(order))
	for _, id := range order {
		standings = append(standings, *byStudent[id])
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		return standings[i].StudentName < standings[j].StudentName
	})

	for i := range standings {
		if i > 0 && standings[i].Points == standings[i-1].Points {
			standings[i].Place = standings[i-1].Place
			continue
		}
		standings[i].Place = i + 1
	}
	return standings
}
