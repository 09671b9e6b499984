package homework

// Grade is one of the closed set of labels a teacher puts on a submission.
type Grade string

const (
	GradeWorse   Grade = "Worse"
	GradeBad     Grade = "Bad"
	GradeGood    Grade = "Good"
	GradeBetter  Grade = "Better"
	GradePerfect Grade = "Perfect"
)

// Grades lists the labels from lowest to highest.
var Grades = []Grade{GradeWorse, GradeBad, GradeGood, GradeBetter, GradePerfect}

var gradePoints = map[Grade]int{
	GradeWorse:   1,
	GradeBad:     2,
	GradeGood:    3,
	GradeBetter:  4,
	GradePerfect: 5,
}

// IsGraded reports whether label is a grade. Matching is case-sensitive.
func IsGraded(label string) bool {
	_, ok := gradePoints[Grade(label)]
	return ok
}

// PointsFor returns the ranking points of a grade label, 0 for anything else.
func PointsFor(label string) int {
	return gradePoints[Grade(label)]
}
