package services

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lojf/dancestudio/internal/models"
	"github.com/lojf/dancestudio/internal/schedule"
)

// fuzzyCutoff is tuned for small typos: "bachta" ~ "bachata".
const fuzzyCutoff = 0.78

var ErrInstanceNotEmpty = errors.New("class instance still has students")

// NameIndex lists the canonical display name of every class group.
type NameIndex interface {
	CanonicalNames() ([]string, error)
}

// StaticNames is a fixed NameIndex, handy for previews and tests.
type StaticNames []string

func (s StaticNames) CanonicalNames() ([]string, error) { return s, nil }

type storeNames struct{ db *gorm.DB }

func (s storeNames) CanonicalNames() ([]string, error) {
	var names []string
	err := s.db.Model(&models.ClassInstance{}).
		Select("MIN(name)").
		Group("name_key").
		Pluck("MIN(name)", &names).Error
	return names, classify(err, "list class names")
}

type Registry struct {
	db    *gorm.DB
	names NameIndex
}

// NewRegistry builds a registry on db. A nil index reads names from db.
func NewRegistry(db *gorm.DB, names NameIndex) *Registry {
	if names == nil {
		names = storeNames{db}
	}
	return &Registry{db: db, names: names}
}

// ResolveCanonicalName snaps user input onto an existing group name:
// exact key match first, then the closest fuzzy match above the cutoff.
// Unknown names come back unchanged and start a new group.
func (r *Registry) ResolveCanonicalName(input string) (string, error) {
	existing, err := r.names.CanonicalNames()
	if err != nil {
		return "", err
	}
	return resolveName(input, existing), nil
}

func resolveName(input string, existing []string) string {
	if len(existing) == 0 {
		return input
	}
	want := NameKey(input)
	for _, n := range existing {
		if NameKey(n) == want {
			return n
		}
	}

	wantChars := strings.Split(want, "")
	best, bestScore := "", 0.0
	for _, n := range existing {
		m := difflib.NewMatcher(strings.Split(NameKey(n), ""), wantChars)
		if score := m.Ratio(); score >= fuzzyCutoff && score > bestScore {
			best, bestScore = n, score
		}
	}
	if best != "" {
		return best
	}
	return input
}

type AddInstanceInput struct {
	Name     string            `validate:"required"`
	Weekdays schedule.Weekdays `validate:"required"`
	Time     string            `validate:"required"`
	Price    *decimal.Decimal
}

// AddInstance creates a schedule slot in the (resolved) group.
func (r *Registry) AddInstance(in AddInstanceInput) (models.ClassInstance, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return models.ClassInstance{}, err
	}
	hour, err := schedule.ParseTime(in.Time)
	if err != nil {
		return models.ClassInstance{}, errors.Wrap(ErrInvalidInput, err.Error())
	}
	canon, err := r.ResolveCanonicalName(in.Name)
	if err != nil {
		return models.ClassInstance{}, err
	}

	inst := models.ClassInstance{
		Name:    canon,
		NameKey: NameKey(canon),
		Kind:    models.KindActive,
		Days:    in.Weekdays.String(),
		Hour:    hour,
	}
	if in.Price != nil {
		inst.Price = decimal.NewNullDecimal(*in.Price)
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		taken, err := slotTaken(tx, inst.NameKey, inst.Days, inst.Hour, 0)
		if err != nil {
			return err
		}
		if taken {
			return errors.Wrapf(ErrDuplicateInstance, "%s %s %s", canon, inst.Days, inst.Hour)
		}
		return tx.Create(&inst).Error
	})
	if err != nil {
		return models.ClassInstance{}, classify(err, "add class instance")
	}
	return inst, nil
}

func slotTaken(tx *gorm.DB, key, days, hour string, exceptID uint) (bool, error) {
	var n int64
	q := tx.Model(&models.ClassInstance{}).
		Where("name_key = ? AND kind = ? AND days = ? AND hour = ?", key, models.KindActive, days, hour)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

// EnsureArchive returns the group's archive instance, creating it on first use.
func (r *Registry) EnsureArchive(groupName string) (uint, error) {
	canon, err := r.ResolveCanonicalName(groupName)
	if err != nil {
		return 0, err
	}
	return ensureArchiveTx(r.db, canon)
}

func ensureArchiveTx(tx *gorm.DB, canon string) (uint, error) {
	key := NameKey(canon)
	var inst models.ClassInstance
	err := tx.Where("name_key = ? AND kind = ?", key, models.KindArchive).First(&inst).Error
	if err == nil {
		return inst.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, classify(err, "find archive")
	}
	inst = models.ClassInstance{Name: canon, NameKey: key, Kind: models.KindArchive}
	if err := tx.Create(&inst).Error; err != nil {
		return 0, classify(err, "create archive")
	}
	return inst.ID, nil
}

// UpdateSchedule moves one slot of a group to new days/time. It returns the
// number of rows changed; 0 without error when nothing changes.
func (r *Registry) UpdateSchedule(name string, oldW schedule.Weekdays, oldTime string, newW schedule.Weekdays, newTime string) (int64, error) {
	if newW.Empty() {
		return 0, errors.Wrap(ErrInvalidInput, "weekdays required")
	}
	oldHour, err := schedule.ParseTime(oldTime)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidInput, err.Error())
	}
	newHour, err := schedule.ParseTime(newTime)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidInput, err.Error())
	}
	if oldW == newW && oldHour == newHour {
		return 0, nil
	}
	canon, err := r.ResolveCanonicalName(name)
	if err != nil {
		return 0, err
	}
	key := NameKey(canon)

	var rows int64
	err = r.db.Transaction(func(tx *gorm.DB) error {
		taken, err := slotTaken(tx, key, newW.String(), newHour, 0)
		if err != nil {
			return err
		}
		if taken {
			return errors.Wrapf(ErrDuplicateInstance, "%s %s %s", canon, newW, newHour)
		}
		res := tx.Model(&models.ClassInstance{}).
			Where("name_key = ? AND kind = ? AND days = ? AND hour = ?", key, models.KindActive, oldW.String(), oldHour).
			Updates(map[string]interface{}{"days": newW.String(), "hour": newHour})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(ErrNotFound, "%s %s %s", canon, oldW, oldHour)
		}
		rows = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, classify(err, "update class schedule")
	}
	return rows, nil
}

// UpdateScheduleByID is UpdateSchedule addressed by instance id.
func (r *Registry) UpdateScheduleByID(id uint, newW schedule.Weekdays, newTime string) (int64, error) {
	inst, err := r.Instance(id)
	if err != nil {
		return 0, err
	}
	if inst.IsArchive() {
		return 0, ErrArchiveInstance
	}
	return r.UpdateSchedule(inst.Name, schedule.ParseWeekdays(inst.Days), inst.Hour, newW, newTime)
}

// DeleteInstance removes an empty active slot. Archives are never deleted.
func (r *Registry) DeleteInstance(id uint) error {
	return classify(r.db.Transaction(func(tx *gorm.DB) error {
		var inst models.ClassInstance
		if err := tx.First(&inst, id).Error; err != nil {
			return err
		}
		if inst.IsArchive() {
			return ErrArchiveInstance
		}
		var n int64
		if err := tx.Model(&models.Student{}).Where("class_instance_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errors.Wrapf(ErrInstanceNotEmpty, "%d students", n)
		}
		return tx.Delete(&inst).Error
	}), "delete class instance")
}

func (r *Registry) Instance(id uint) (models.ClassInstance, error) {
	var inst models.ClassInstance
	err := r.db.First(&inst, id).Error
	return inst, classify(err, "load class instance")
}

// Instances lists every slot of a group, archive last.
func (r *Registry) Instances(name string) ([]models.ClassInstance, error) {
	canon, err := r.ResolveCanonicalName(name)
	if err != nil {
		return nil, err
	}
	var out []models.ClassInstance
	err = r.db.Where("name_key = ?", NameKey(canon)).
		Order("kind = 'archive'").Order("days").Order("hour").
		Find(&out).Error
	return out, classify(err, "list class instances")
}

type Group struct {
	Name      string
	NameKey   string
	Instances []models.ClassInstance
}

// Groups returns every class group in saved tab order; groups without a
// saved position follow alphabetically.
func (r *Registry) Groups() ([]Group, error) {
	var all []models.ClassInstance
	if err := r.db.Order("kind = 'archive'").Order("days").Order("hour").Find(&all).Error; err != nil {
		return nil, classify(err, "list classes")
	}
	var order []models.ClassOrder
	if err := r.db.Find(&order).Error; err != nil {
		return nil, classify(err, "load class order")
	}
	pos := make(map[string]int, len(order))
	for _, o := range order {
		pos[o.NameKey] = o.Position
	}

	byKey := map[string]*Group{}
	var groups []*Group
	for _, inst := range all {
		g, ok := byKey[inst.NameKey]
		if !ok {
			g = &Group{Name: inst.Name, NameKey: inst.NameKey}
			byKey[inst.NameKey] = g
			groups = append(groups, g)
		}
		if inst.Name < g.Name {
			g.Name = inst.Name
		}
		g.Instances = append(g.Instances, inst)
	}

	rank := func(g *Group) int {
		if p, ok := pos[g.NameKey]; ok {
			return p
		}
		return 1 << 30
	}
	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := rank(groups[i]), rank(groups[j])
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
	})

	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = *g
	}
	return out, nil
}

// SaveOrder stores the tab order of groups by name key.
func (r *Registry) SaveOrder(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	rows := make([]models.ClassOrder, len(keys))
	for i, k := range keys {
		rows[i] = models.ClassOrder{NameKey: k, Position: i}
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"position"}),
	}).Create(&rows).Error
	return classify(err, "save class order")
}
