package views

import (
	"context"
	"fmt"

	"tutorportal/internal/homework"
	"tutorportal/internal/model"
	"tutorportal/internal/nav"
	"tutorportal/internal/session"
	"tutorportal/internal/slots"
)

// Dashboard is the landing view model of every role.
type Dashboard struct {
	UserName string            `json:"userName"`
	Role     model.Role        `json:"role"`
	Views    []nav.View        `json:"views"`
	Homework *homework.Summary `json:"homework,omitempty"`
}

// WeekSchedule is a teacher's own availability.
type WeekSchedule struct {
	TeacherID int64            `json:"teacherId"`
	Days      map[int][]string `json:"days"`
}

// Register binds the screens of a session's views to the navigation registry.
func (s *Set) Register(reg *nav.Registry) {
	dashboard := nav.ScreenFunc(s.dashboard)
	for _, role := range []model.Role{
		model.RoleTeacher, model.RoleStudent, model.RoleParent,
		model.RoleAdmin, model.RoleSuperAdmin, model.RoleSupportTeacher,
	} {
		reg.Register(nav.HomeFor(role), dashboard)
	}
	reg.Register(nav.ViewHomeworks, nav.ScreenFunc(s.homeworks))
	reg.Register(nav.ViewHomeworkDetail, nav.ScreenFunc(s.homeworkDetail))
	reg.Register(nav.ViewBooking, nav.ScreenFunc(s.booking))
	reg.Register(nav.ViewRanking, nav.ScreenFunc(s.ranking))
	reg.Register(nav.ViewGroups, nav.ScreenFunc(s.groups))
	reg.Register(nav.ViewSchedule, nav.ScreenFunc(func(ctx context.Context, st *nav.State) (any, error) {
		return teacherSchedule(ctx, s.api, st.UserID)
	}))
}

// StudentFor returns whose homeworks a user looks at: students see their
// own, everyone else the selected student.
func StudentFor(st *nav.State) (int64, bool) {
	if st.Role == model.RoleStudent {
		return st.UserID, true
	}
	return st.SelectedID(session.KeySelectedStudent)
}

func (s *Set) dashboard(ctx context.Context, st *nav.State) (any, error) {
	d := &Dashboard{UserName: st.UserName, Role: st.Role, Views: st.Available}
	if st.Role != model.RoleStudent && st.Role != model.RoleParent {
		return d, nil
	}
	studentID, ok := StudentFor(st)
	if !ok {
		return d, nil
	}
	list, err := s.Homework.Load(ctx, studentID, s.Booking.now())
	if err != nil {
		return nil, err
	}
	d.Homework = &list.Summary
	return d, nil
}

func (s *Set) homeworks(ctx context.Context, st *nav.State) (any, error) {
	studentID, ok := StudentFor(st)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSelection, session.KeySelectedStudent)
	}
	return s.Homework.Load(ctx, studentID, s.Booking.now())
}

func (s *Set) homeworkDetail(ctx context.Context, st *nav.State) (any, error) {
	id, ok := st.SelectedID(session.KeySelectedHomework)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSelection, session.KeySelectedHomework)
	}
	return s.HomeworkDetail(ctx, st, id)
}

// HomeworkDetail returns homework id of the student st looks at. The last
// loaded list is reused only when it belongs to that student.
func (s *Set) HomeworkDetail(ctx context.Context, st *nav.State, id int64) (HomeworkItem, error) {
	studentID, hasStudent := StudentFor(st)
	list, ok := s.Homework.Last()
	switch {
	case hasStudent && (!ok || list.StudentID != studentID):
		var err error
		if list, err = s.Homework.Load(ctx, studentID, s.Booking.now()); err != nil {
			return HomeworkItem{}, err
		}
	case !ok:
		return HomeworkItem{}, fmt.Errorf("%w: %s", ErrMissingSelection, session.KeySelectedStudent)
	}
	item, found := list.Find(id)
	if !found {
		return HomeworkItem{}, fmt.Errorf("homework %d: %w", id, ErrNotLoaded)
	}
	return item, nil
}

func (s *Set) booking(ctx context.Context, st *nav.State) (any, error) {
	teacherID, ok := st.SelectedID(session.KeySelectedTeacher)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSelection, session.KeySelectedTeacher)
	}
	date := st.Selected[session.KeySelectedDate]
	if date == "" {
		date = s.Booking.now().Format(dateLayout)
	}
	return s.Booking.Load(ctx, teacherID, date)
}

func (s *Set) ranking(ctx context.Context, st *nav.State) (any, error) {
	groupID, ok := st.SelectedID(session.KeySelectedGroup)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSelection, session.KeySelectedGroup)
	}
	return s.Ranking.Load(ctx, groupID)
}

func (s *Set) groups(ctx context.Context, st *nav.State) (any, error) {
	groupID, ok := st.SelectedID(session.KeySelectedGroup)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSelection, session.KeySelectedGroup)
	}
	r, err := s.Ranking.Load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return BuildGroupSheet(r), nil
}

func teacherSchedule(ctx context.Context, api API, teacherID int64) (*WeekSchedule, error) {
	sched, err := api.TeacherSchedule(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	out := &WeekSchedule{TeacherID: teacherID, Days: make(map[int][]string)}
	for dow := 1; dow <= 7; dow++ {
		ranges, err := slots.FromTimeSlots(sched.ForDay(dow))
		if err != nil {
			return nil, fmt.Errorf("day %d: %w: %v", dow, model.ErrMalformed, err)
		}
		if len(ranges) > 0 {
			out.Days[dow] = rangeStrings(ranges)
		}
	}
	return out, nil
}
