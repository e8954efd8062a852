package services

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lojf/dancestudio/internal/models"
	"github.com/lojf/dancestudio/internal/schedule"
)

// Outcome tells what archiving did with a student.
type Outcome int

const (
	Moved Outcome = iota + 1
	Deleted
)

func (o Outcome) String() string {
	switch o {
	case Moved:
		return "moved"
	case Deleted:
		return "deleted"
	}
	return "none"
}

type BulkResult struct {
	Moved   int
	Deleted int
	Failed  int
	Errors  []error
}

// Students is the student ledger. Archive batches are recorded in history so
// the latest one can be undone.
type Students struct {
	db      *gorm.DB
	history *History
}

func NewStudents(db *gorm.DB, history *History) *Students {
	if history == nil {
		history = NewHistory(1)
	}
	return &Students{db: db, history: history}
}

func (s *Students) History() *History { return s.history }

func weekdaysOf(tx *gorm.DB, instanceID uint) (models.ClassInstance, schedule.Weekdays, error) {
	var inst models.ClassInstance
	if err := tx.First(&inst, instanceID).Error; err != nil {
		return inst, 0, classify(err, "load class instance")
	}
	return inst, schedule.ParseWeekdays(inst.Days), nil
}

// trackedDays narrows w to the student's single tracked day when it is one
// of the instance's days.
func trackedDays(w schedule.Weekdays, st models.Student) schedule.Weekdays {
	if st.TrackDay == "" {
		return w
	}
	if idx, ok := schedule.DayIndex(st.TrackDay); ok && w.Has(idx) {
		return schedule.Of(idx)
	}
	return w
}

type EnrollInput struct {
	ClassInstanceID uint   `validate:"required"`
	Name            string `validate:"required"`
	Phone           string
	Note            string
	// Start defaults to today.
	Start time.Time
	// End is only set by imports; otherwise one period after Start.
	End *time.Time
}

// Enroll adds a student to a class instance. A fresh enrolment gets four
// weeks of sessions; an explicit end date gets its balance computed.
func (s *Students) Enroll(in EnrollInput, today time.Time) (models.Student, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return models.Student{}, err
	}
	_, w, err := weekdaysOf(s.db, in.ClassInstanceID)
	if err != nil {
		return models.Student{}, err
	}

	start := schedule.Day(in.Start)
	if in.Start.IsZero() {
		start = schedule.Day(today)
	}
	st := models.Student{
		ClassInstanceID: in.ClassInstanceID,
		Name:            in.Name,
		Phone:           FormatPhone(in.Phone),
		StartDate:       schedule.FormatDate(start),
		Note:            strings.TrimSpace(in.Note),
	}
	if in.End != nil {
		end := schedule.Day(*in.End)
		st.EndDate = schedule.FormatDate(end)
		st.SessionsRemaining = schedule.Balance(start, end, today, w)
	} else {
		st.EndDate = schedule.FormatDate(start.AddDate(0, 0, schedule.Period))
		st.SessionsRemaining = schedule.DefaultSessions(w)
	}

	if err := s.db.Create(&st).Error; err != nil {
		return models.Student{}, classify(err, "enroll student")
	}
	return st, nil
}

// UpdateInput carries an inline edit. Nil fields stay as they are.
type UpdateInput struct {
	Name  *string
	Phone *string
	Start *string
	End   *string
	Note  *string
}

// Update applies an inline edit. An unreadable start date falls back to
// today; an unreadable end date keeps the stored one.
func (s *Students) Update(id uint, in UpdateInput, today time.Time) (models.Student, error) {
	var st models.Student
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&st, id).Error; err != nil {
			return err
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return errors.Wrap(ErrInvalidInput, "name required")
			}
			st.Name = name
		}
		if in.Phone != nil {
			st.Phone = FormatPhone(*in.Phone)
		}
		if in.Note != nil {
			st.Note = strings.TrimSpace(*in.Note)
		}
		if in.Start != nil {
			st.StartDate = schedule.FormatDate(schedule.DateOr(*in.Start, today))
		}
		if in.End != nil {
			if end, err := schedule.ParseDate(*in.End); err == nil {
				st.EndDate = schedule.FormatDate(end)
			}
		}
		return s.rebalanceTx(tx, &st, today)
	})
	if err != nil {
		return models.Student{}, classify(err, "update student")
	}
	return st, nil
}

// rebalanceTx recomputes the session balance and saves the row.
func (s *Students) rebalanceTx(tx *gorm.DB, st *models.Student, today time.Time) error {
	_, w, err := weekdaysOf(tx, st.ClassInstanceID)
	if err != nil {
		return err
	}
	start, errS := schedule.ParseDate(st.StartDate)
	end, errE := schedule.ParseDate(st.EndDate)
	if errS == nil && errE == nil {
		st.SessionsRemaining = schedule.Balance(start, end, today, trackedDays(w, *st))
	}
	return tx.Save(st).Error
}

// TrackSingleDay counts the student's balance on one class day only, for
// students who come once a week to a multi-day slot. An empty token goes back
// to every day of the instance.
func (s *Students) TrackSingleDay(id uint, token string, today time.Time) (models.Student, error) {
	token = strings.TrimSpace(token)
	var st models.Student
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&st, id).Error; err != nil {
			return err
		}
		inst, w, err := weekdaysOf(tx, st.ClassInstanceID)
		if err != nil {
			return err
		}
		if inst.IsArchive() {
			return ErrArchiveInstance
		}
		if token == "" {
			st.TrackDay = ""
			return s.rebalanceTx(tx, &st, today)
		}
		idx, ok := schedule.DayIndex(token)
		if !ok {
			return errors.Wrapf(ErrInvalidInput, "unknown day %q", token)
		}
		if !w.Has(idx) {
			return errors.Wrapf(ErrInvalidInput, "%s is not a day of %s", token, inst.Label())
		}
		start, err := schedule.ParseDate(st.StartDate)
		if err != nil {
			return err
		}
		end, err := schedule.ParseDate(st.EndDate)
		if err != nil {
			return err
		}
		st.TrackDay = schedule.Of(idx).String()
		st.SessionsRemaining = schedule.Balance(start, end, today, schedule.Of(idx))
		return tx.Save(&st).Error
	})
	if err != nil {
		return models.Student{}, classify(err, "track single day")
	}
	return st, nil
}

// Extend pushes the payment date forward by n class days of the student's
// instance and recomputes the balance.
func (s *Students) Extend(id uint, n int, today time.Time) (models.Student, error) {
	if n <= 0 {
		return models.Student{}, errors.Wrap(ErrInvalidInput, "sessions must be positive")
	}
	var st models.Student
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&st, id).Error; err != nil {
			return err
		}
		_, w, err := weekdaysOf(tx, st.ClassInstanceID)
		if err != nil {
			return err
		}
		end, err := schedule.ParseDate(st.EndDate)
		if err != nil {
			// no usable end date: extend from today
			end = schedule.Day(today)
		}
		st.EndDate = schedule.FormatDate(schedule.ExtendEndDate(end, n, trackedDays(w, st)))
		return s.rebalanceTx(tx, &st, today)
	})
	if err != nil {
		return models.Student{}, classify(err, "extend student")
	}
	return st, nil
}

// ArchiveOrDelete moves a student into the group's archive, or deletes it when
// the archive already holds the same person (same folded name or same phone).
// The row is snapshotted first so Undo can bring it back.
func (s *Students) ArchiveOrDelete(id uint) (Outcome, error) {
	snap, err := s.snapshot([]uint{id})
	if err != nil {
		return 0, err
	}
	if len(snap) == 0 {
		return 0, errors.Wrapf(ErrNotFound, "student %d", id)
	}

	var out Outcome
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = ArchiveOrDeleteTx(tx, id)
		return err
	})
	if err != nil {
		return 0, classify(err, "archive student")
	}
	s.history.Push("archive", snap)
	return out, nil
}

// BulkArchiveOrDelete archives every id on its own; one failing student does
// not stop the rest. The whole batch is a single undo step.
func (s *Students) BulkArchiveOrDelete(ids []uint) (BulkResult, error) {
	var res BulkResult
	ids = uniqueIDs(ids)
	snap, err := s.snapshot(ids)
	if err != nil {
		return res, err
	}

	for _, id := range ids {
		var out Outcome
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var err error
			out, err = ArchiveOrDeleteTx(tx, id)
			return err
		})
		switch {
		case err != nil:
			res.Failed++
			res.Errors = append(res.Errors, classify(err, "archive student"))
		case out == Moved:
			res.Moved++
		case out == Deleted:
			res.Deleted++
		}
	}
	if res.Moved+res.Deleted > 0 {
		s.history.Push("bulk archive", snap)
	}
	return res, nil
}

// uniqueIDs drops repeats, keeping first-seen order. A repeated id would be
// archived once and then matched against its own archived row.
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (s *Students) snapshot(ids []uint) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Student
	err := s.db.Where("id IN ?", ids).Find(&rows).Error
	return rows, classify(err, "snapshot students")
}

// ArchiveOrDeleteTx does the work of ArchiveOrDelete inside an existing TX,
// without touching undo history.
func ArchiveOrDeleteTx(tx *gorm.DB, id uint) (Outcome, error) {
	var st models.Student
	if err := tx.First(&st, id).Error; err != nil {
		return 0, err
	}
	var inst models.ClassInstance
	if err := tx.First(&inst, st.ClassInstanceID).Error; err != nil {
		return 0, err
	}
	archiveID, err := ensureArchiveTx(tx, inst.Name)
	if err != nil {
		return 0, err
	}

	var archived []models.Student
	if err := tx.Where("class_instance_id = ?", archiveID).Find(&archived).Error; err != nil {
		return 0, err
	}
	key := FoldName(st.Name)
	for _, a := range archived {
		if FoldName(a.Name) == key || SamePhone(a.Phone, st.Phone) {
			if err := tx.Delete(&models.Student{}, st.ID).Error; err != nil {
				return 0, err
			}
			return Deleted, nil
		}
	}

	err = tx.Model(&models.Student{}).Where("id = ?", st.ID).
		Update("class_instance_id", archiveID).Error
	if err != nil {
		return 0, err
	}
	return Moved, nil
}

// Restore writes rows back under their original ids, replacing whatever is
// stored under those ids now.
func (s *Students) Restore(rows []models.Student) error {
	if len(rows) == 0 {
		return nil
	}
	rows = append([]models.Student(nil), rows...)
	err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
	return classify(err, "restore students")
}

// Undo restores the latest archive batch and recomputes balances.
func (s *Students) Undo(today time.Time) (UndoEntry, error) {
	e, ok := s.history.Pop()
	if !ok {
		return UndoEntry{}, errors.Wrap(ErrNotFound, "nothing to undo")
	}
	if err := s.Restore(e.Rows); err != nil {
		s.history.requeue(e)
		return UndoEntry{}, err
	}
	ids := make([]uint, len(e.Rows))
	for i, r := range e.Rows {
		ids[i] = r.ID
	}
	if _, err := s.recompute(today, ids); err != nil {
		return e, err
	}
	return e, nil
}

type RecomputeResult struct {
	Updated int
	Skipped int
}

// RecomputeAllBalances re-derives the session balance of every student in an
// active instance. Rows with unreadable dates are skipped and counted;
// archived students have no class days and are left as they are.
func (s *Students) RecomputeAllBalances(today time.Time) (RecomputeResult, error) {
	return s.recompute(today, nil)
}

// recompute limits the pass to ids when given.
func (s *Students) recompute(today time.Time, ids []uint) (RecomputeResult, error) {
	var res RecomputeResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var insts []models.ClassInstance
		if err := tx.Where("kind = ?", models.KindActive).Find(&insts).Error; err != nil {
			return err
		}
		days := make(map[uint]schedule.Weekdays, len(insts))
		for _, inst := range insts {
			days[inst.ID] = schedule.ParseWeekdays(inst.Days)
		}

		q := tx.Model(&models.Student{})
		if ids != nil {
			q = q.Where("id IN ?", ids)
		}
		var batch []models.Student
		return q.FindInBatches(&batch, 200, func(_ *gorm.DB, _ int) error {
			for _, st := range batch {
				w, ok := days[st.ClassInstanceID]
				if !ok {
					// archive instance
					continue
				}
				start, errS := schedule.ParseDate(st.StartDate)
				end, errE := schedule.ParseDate(st.EndDate)
				if errS != nil || errE != nil {
					res.Skipped++
					continue
				}
				bal := schedule.Balance(start, end, today, trackedDays(w, st))
				if bal == st.SessionsRemaining {
					continue
				}
				if err := tx.Model(&models.Student{}).Where("id = ?", st.ID).
					UpdateColumn("sessions_remaining", bal).Error; err != nil {
					return err
				}
				res.Updated++
			}
			return nil
		}).Error
	})
	return res, classify(err, "recompute balances")
}

func (s *Students) Get(id uint) (models.Student, error) {
	var st models.Student
	err := s.db.First(&st, id).Error
	return st, classify(err, "load student")
}

// ByInstance lists an instance's students in enrolment order.
func (s *Students) ByInstance(instanceID uint) ([]models.Student, error) {
	var out []models.Student
	err := s.db.Where("class_instance_id = ?", instanceID).Order("id").Find(&out).Error
	return out, classify(err, "list students")
}

// StudentClass is a student together with the slot it sits in.
type StudentClass struct {
	models.Student
	ClassName string
	Kind      models.Kind
	Days      string
	Hour      string
}

func (sc StudentClass) ClassLabel() string {
	return models.ClassInstance{Kind: sc.Kind, Days: sc.Days, Hour: sc.Hour}.Label()
}

func (s *Students) withClasses() *gorm.DB {
	return s.db.Table("students").
		Select("students.*, class_instances.name AS class_name, class_instances.kind, class_instances.days, class_instances.hour").
		Joins("JOIN class_instances ON class_instances.id = students.class_instance_id").
		Order("students.name COLLATE NOCASE")
}

// Search finds students across all classes by folded name or by phone digits.
func (s *Students) Search(text string) ([]StudentClass, error) {
	q := FoldName(text)
	digits := DigitsOnly(text)
	if q == "" && digits == "" {
		return nil, nil
	}
	var all []StudentClass
	if err := s.withClasses().Scan(&all).Error; err != nil {
		return nil, classify(err, "search students")
	}
	var out []StudentClass
	for _, sc := range all {
		if q != "" && strings.Contains(FoldName(sc.Name), q) {
			out = append(out, sc)
			continue
		}
		if digits != "" && strings.Contains(DigitsOnly(sc.Phone), digits) {
			out = append(out, sc)
		}
	}
	return out, nil
}

// DueToday lists active students whose payment date is today.
func (s *Students) DueToday(today time.Time) ([]StudentClass, error) {
	var all []StudentClass
	err := s.withClasses().Where("class_instances.kind = ?", models.KindActive).Scan(&all).Error
	if err != nil {
		return nil, classify(err, "list due students")
	}
	var out []StudentClass
	for _, sc := range all {
		end, err := schedule.ParseDate(sc.EndDate)
		if err != nil {
			continue
		}
		if schedule.RemainingDays(today, end) == 0 {
			out = append(out, sc)
		}
	}
	return out, nil
}

// Sign buckets a day balance for colouring.
type Sign string

const (
	SignPositive Sign = "positive"
	SignZero     Sign = "zero"
	SignNegative Sign = "negative"
)

func signOf(n int) Sign {
	switch {
	case n > 0:
		return SignPositive
	case n < 0:
		return SignNegative
	}
	return SignZero
}

// StudentView is a student row as staff see it.
type StudentView struct {
	models.Student
	DayBalance       *int
	Sign             Sign
	RecentlyAttended bool
}

// View derives the display row. A missing or unreadable end date leaves the
// day balance empty.
func View(st models.Student, w schedule.Weekdays, today time.Time, last *time.Time) StudentView {
	v := StudentView{Student: st, Sign: SignZero}
	if end, err := schedule.ParseDate(st.EndDate); err == nil {
		n := schedule.RemainingDays(today, end)
		v.DayBalance = &n
		v.Sign = signOf(n)
	}
	if last != nil {
		v.RecentlyAttended = recentlyAttended(*last, w, today)
	}
	return v
}
