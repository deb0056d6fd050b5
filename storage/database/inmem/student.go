package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CheckAdmNoUniqueness(_ context.Context, admNo string, excluded ...student.Student) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, row := range repo.db.table {
		if row.AdmNo == admNo && !isExcluded(row.ID, excluded) {
			return student.ErrAdmNoExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, row := range repo.db.table {
		if row.AdmNo == s.AdmNo {
			return student.Student{}, student.ErrAdmNoExists
		}
	}
	repo.db.seq++
	repo.db.table[s.ID] = &studentRow{seq: repo.db.seq, Student: s}
	return s, nil
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, ords ...core.Ordering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]*studentRow, 0, len(repo.db.table))
	for _, row := range repo.db.table {
		if filter.Match(row.Student) {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return lessStudent(rows[i], rows[j], ords) })

	students := make([]student.Student, len(rows))
	for i, row := range rows {
		students[i] = row.Student
	}
	return students, nil
}

// lessStudent compares on each ordering in turn, then on insertion order.
func lessStudent(a, b *studentRow, ords []core.Ordering) bool {
	for _, ord := range ords {
		var cmp int
		switch ord.Field {
		case "adm_no":
			cmp = compareAdmNo(a.AdmNo, b.AdmNo)
		case "name":
			cmp = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case "grade":
			cmp = compareGrade(a.Grade, b.Grade)
		case "stream":
			cmp = strings.Compare(a.Stream, b.Stream)
		case "created_at":
			cmp = a.seq - b.seq
		}
		if cmp == 0 {
			continue
		}
		if ord.Ascending {
			return cmp < 0
		}
		return cmp > 0
	}
	return a.seq < b.seq
}

// compareAdmNo sorts numeric admission numbers numerically, eg. 999 < 1023.
func compareAdmNo(a, b string) int {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

// compareGrade follows the order of student.Grades; unknown grades go last.
func compareGrade(a, b string) int {
	rank := func(g string) int {
		for i, grade := range student.Grades {
			if strings.EqualFold(grade, g) {
				return i
			}
		}
		return len(student.Grades)
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra - rb
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func (repo *studentRepository) GetStudent(_ context.Context, filter student.GetFilter) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if row, ok := repo.db.table[filter.ID]; ok {
			return row.Student, nil
		}
		return student.Student{}, student.ErrNotFound
	}
	if filter.AdmNo != "" {
		for _, row := range repo.db.table {
			if row.AdmNo == filter.AdmNo {
				return row.Student, nil
			}
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	row, ok := repo.db.table[s.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	for _, other := range repo.db.table {
		if other.ID != s.ID && other.AdmNo == s.AdmNo {
			return student.Student{}, student.ErrAdmNoExists
		}
	}
	s.CreatedAt = row.CreatedAt
	row.Student = s
	return s, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func isExcluded(id string, excluded []student.Student) bool {
	for _, s := range excluded {
		if s.ID == id {
			return true
		}
	}
	return false
}
