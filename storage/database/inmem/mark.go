package inmemdb

import (
	"context"
	"sort"

	"github.com/officialmikal/elimusmart/core/academics"
	"github.com/officialmikal/elimusmart/core/subject"
)

type markRepository struct {
	db *markTable
}

var (
	_ academics.Repository = (*markRepository)(nil)
	_ subject.MarkCleaner  = (*markRepository)(nil)
)

func NewMarkRepository(db *DB) academics.Repository {
	return &markRepository{db: db.mark}
}

func (repo *markRepository) UpsertMarks(_ context.Context, marks ...academics.Mark) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, m := range marks {
		repo.db.table[markKey{m.StudentID, m.SubjectID}] = m
	}
	return nil
}

// QueryMarks returns the matching marks ordered by student & subject ID.
func (repo *markRepository) QueryMarks(_ context.Context, filter academics.MarkFilter) ([]academics.Mark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids map[string]bool
	if filter.StudentIDs != nil {
		ids = make(map[string]bool, len(filter.StudentIDs))
		for _, id := range filter.StudentIDs {
			ids[id] = true
		}
	}

	marks := make([]academics.Mark, 0)
	for k, m := range repo.db.table {
		if ids != nil && !ids[k.studentID] {
			continue
		}
		if filter.SubjectID != "" && k.subjectID != filter.SubjectID {
			continue
		}
		marks = append(marks, m)
	}
	sort.Slice(marks, func(i, j int) bool {
		if marks[i].StudentID != marks[j].StudentID {
			return marks[i].StudentID < marks[j].StudentID
		}
		return marks[i].SubjectID < marks[j].SubjectID
	})
	return marks, nil
}

func (repo *markRepository) DeleteStudentMarks(_ context.Context, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for k := range repo.db.table {
		if k.studentID == studentID {
			delete(repo.db.table, k)
		}
	}
	return nil
}

func (repo *markRepository) DeleteSubjectMarks(_ context.Context, subjectID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for k := range repo.db.table {
		if k.subjectID == subjectID {
			delete(repo.db.table, k)
		}
	}
	return nil
}
