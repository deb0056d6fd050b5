package inmemdb

import (
	"context"
	"strings"

	"github.com/officialmikal/elimusmart/core/subject"
)

type subjectRepository struct {
	db *subjectTable
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db.subject}
}

func (repo *subjectRepository) CheckNameUniqueness(_ context.Context, name string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.table {
		if strings.EqualFold(s.Name, name) {
			return subject.ErrNameExists
		}
	}
	return nil
}

func (repo *subjectRepository) CreateSubject(_ context.Context, s subject.Subject) (subject.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.table {
		if strings.EqualFold(other.Name, s.Name) {
			return subject.Subject{}, subject.ErrNameExists
		}
	}
	repo.db.table = append(repo.db.table, s)
	return s, nil
}

// QuerySubjects returns the matching subjects in creation order.
func (repo *subjectRepository) QuerySubjects(_ context.Context, filter subject.QueryFilter) ([]subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]subject.Subject, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		if filter.Match(s) {
			subjects = append(subjects, s)
		}
	}
	return subjects, nil
}

func (repo *subjectRepository) GetSubjectByID(_ context.Context, id string) (subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.table {
		if s.ID == id {
			return s, nil
		}
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) GetSubjectByName(_ context.Context, name string) (subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.table {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) DeleteSubject(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, s := range repo.db.table {
		if s.ID == id {
			repo.db.table = append(repo.db.table[:i], repo.db.table[i+1:]...)
			return nil
		}
	}
	return subject.ErrNotFound
}
