package services

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lojf/dancestudio/internal/models"
	"github.com/lojf/dancestudio/internal/schedule"
)

// Attendance is the append-only log of days a student showed up.
type Attendance struct {
	db *gorm.DB
}

func NewAttendance(db *gorm.DB) *Attendance { return &Attendance{db: db} }

// Mark records a visit. Double marks are allowed; only the latest date matters.
func (a *Attendance) Mark(studentID uint, date time.Time) error {
	row := models.AttendanceMark{StudentID: studentID, Date: schedule.FormatDate(date)}
	return classify(a.db.Create(&row).Error, "mark attendance")
}

// Unmark removes every mark of the student on date.
func (a *Attendance) Unmark(studentID uint, date time.Time) error {
	res := a.db.Where("student_id = ? AND date = ?", studentID, schedule.FormatDate(date)).
		Delete(&models.AttendanceMark{})
	if res.Error != nil {
		return classify(res.Error, "unmark attendance")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "no attendance on %s", schedule.FormatDate(date))
	}
	return nil
}

// Dates lists the distinct attended days, oldest first.
func (a *Attendance) Dates(studentID uint) ([]time.Time, error) {
	var raw []string
	err := a.db.Model(&models.AttendanceMark{}).
		Where("student_id = ?", studentID).
		Distinct("date").Order("date").
		Pluck("date", &raw).Error
	if err != nil {
		return nil, classify(err, "list attendance")
	}
	out := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		if d, err := schedule.ParseDate(r); err == nil {
			out = append(out, d)
		}
	}
	return out, nil
}

// LastAttendance returns the most recent attended day, or nil.
func (a *Attendance) LastAttendance(studentID uint) (*time.Time, error) {
	var last sql.NullString
	err := a.db.Model(&models.AttendanceMark{}).
		Where("student_id = ?", studentID).
		Select("MAX(date)").Row().Scan(&last)
	if err != nil {
		return nil, classify(err, "last attendance")
	}
	if !last.Valid || last.String == "" {
		return nil, nil
	}
	d, err := schedule.ParseDate(last.String)
	if err != nil {
		return nil, nil
	}
	return &d, nil
}

type lastMark struct {
	StudentID uint
	Last      string
}

// LastByStudent maps each of the given students to their latest attended day.
func (a *Attendance) LastByStudent(ids []uint) (map[uint]time.Time, error) {
	out := map[uint]time.Time{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []lastMark
	err := a.db.Model(&models.AttendanceMark{}).
		Select("student_id, MAX(date) AS last").
		Where("student_id IN ?", ids).
		Group("student_id").
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err, "last attendance")
	}
	for _, r := range rows {
		if d, err := schedule.ParseDate(r.Last); err == nil {
			out[r.StudentID] = d
		}
	}
	return out, nil
}

// RecentlyAttended reports whether today is before the next class day after
// the student's last visit.
func (a *Attendance) RecentlyAttended(studentID uint, w schedule.Weekdays, today time.Time) (bool, error) {
	last, err := a.LastAttendance(studentID)
	if err != nil || last == nil {
		return false, err
	}
	return recentlyAttended(*last, w, today), nil
}

func recentlyAttended(last time.Time, w schedule.Weekdays, today time.Time) bool {
	next, ok := schedule.NextClassDate(last, w)
	if !ok {
		return false
	}
	return schedule.Day(today).Before(next)
}
