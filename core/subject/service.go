package subject

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/officialmikal/elimusmart/core"
)

var (
	// errors
	ErrNotFound   = errors.New("subject not found")
	ErrNameExists = errors.New("a subject with this name already exists")
)

type (
	Repository interface {
		// CheckNameUniqueness compares names case-insensitively.
		CheckNameUniqueness(ctx context.Context, name string) error
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		QuerySubjects(ctx context.Context, filter QueryFilter) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		// GetSubjectByName matches name case-insensitively.
		GetSubjectByName(ctx context.Context, name string) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error
	}

	// MarkCleaner removes the marks recorded against a subject.
	MarkCleaner interface {
		DeleteSubjectMarks(ctx context.Context, subjectID string) error
	}

	Service struct {
		repo  Repository
		marks MarkCleaner
	}
)

func NewService(repo Repository, marks MarkCleaner) *Service {
	return &Service{repo: repo, marks: marks}
}

func (svc *Service) checkUniqueness(name string) error {
	if err := svc.repo.CheckNameUniqueness(context.Background(), name); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	s := Subject{
		ID:        uuid.New().String(),
		Name:      ns.Name,
		Category:  ns.Category,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateSubject(ctx, s)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) GetByName(ctx context.Context, name string) (Subject, error) {
	return svc.repo.GetSubjectByName(ctx, core.CleanString(name))
}

// Delete removes the subject and every mark recorded against it.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.GetByID(ctx, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteSubject(ctx, id); err != nil {
		return err
	}
	if svc.marks != nil {
		return svc.marks.DeleteSubjectMarks(ctx, id)
	}
	return nil
}

// EnsureDefaults creates any DefaultSubjects missing from the repository.
func (svc *Service) EnsureDefaults(ctx context.Context) error {
	for _, ns := range DefaultSubjects {
		if _, err := svc.GetByName(ctx, ns.Name); err == nil {
			continue
		} else if err != ErrNotFound {
			return err
		}
		if _, err := svc.Create(ctx, ns); err != nil {
			return err
		}
	}
	return nil
}
