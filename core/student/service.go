package student

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/officialmikal/elimusmart/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound             = errors.New("student not found")
	ErrAdmNoExists          = errors.New("a student with this admission number already exists")
	ErrConfirmationMismatch = errors.New("the admission number does not match the student's")
)

type (
	Repository interface {
		CheckAdmNoUniqueness(ctx context.Context, admNo string, excluded ...Student) error
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// QueryStudents returns the students matching filter (see QueryFilter.Match), ordered by ords.
		QueryStudents(ctx context.Context, filter QueryFilter, ords ...core.Ordering) ([]Student, error)
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	// DeleteHook is called after a Student has been deleted, eg. to clean up their marks.
	DeleteHook func(ctx context.Context, s Student) error

	Service struct {
		repo  Repository
		hooks []DeleteHook
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// OnDelete registers hooks run after each deletion.
func (svc *Service) OnDelete(hooks ...DeleteHook) {
	svc.hooks = append(svc.hooks, hooks...)
}

func (svc *Service) checkUniqueness(admNo string, excluded ...Student) error {
	if err := svc.repo.CheckAdmNoUniqueness(context.Background(), admNo, excluded...); err != nil {
		if err == ErrAdmNoExists {
			return core.NewValidationError(err, core.FieldError{Field: "adm_no", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create enrolls a validated NewStudent. OpeningBalance is the caller's concern (fee ledger).
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := NowFunc().UTC()
	s := Student{
		ID:          uuid.New().String(),
		AdmNo:       ns.AdmNo,
		Name:        ns.Name,
		Gender:      ns.Gender,
		DOB:         ns.DOB,
		Grade:       ns.Grade,
		Stream:      ns.Stream,
		ParentName:  ns.ParentName,
		ParentPhone: ns.ParentPhone,
		ParentEmail: ns.ParentEmail,
		Residence:   ns.Residence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ords ...core.Ordering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ords...)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByAdmNo(ctx context.Context, admNo string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{AdmNo: CleanAdmNo(admNo)})
}

// Update saves a validated UpdateStudent over the Student with the given id.
func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	orig, err := svc.GetByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	orig.AdmNo = us.AdmNo
	orig.Name = us.Name
	orig.Gender = us.Gender
	orig.DOB = us.DOB
	orig.Grade = us.Grade
	orig.Stream = us.Stream
	orig.ParentName = us.ParentName
	orig.ParentPhone = us.ParentPhone
	orig.ParentEmail = us.ParentEmail
	orig.Residence = us.Residence
	orig.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateStudent(ctx, orig)
}

// Upsert matches s by admission number: blank fields of s keep the matched Student's values.
// Unmatched students are created with blank fields set to Placeholder.
func (svc *Service) Upsert(ctx context.Context, s Student) (Student, bool, error) {
	s.AdmNo = CleanAdmNo(s.AdmNo)
	if s.AdmNo == "" {
		return Student{}, false, core.NewValidationError(nil, core.FieldError{Field: "adm_no", Error: "this field is required"})
	}
	s.ParentPhone = NormalizePhone(s.ParentPhone)
	s.Gender = normalizeGender(s.Gender)
	s.DOB = core.CleanString(s.DOB)
	s.ParentEmail = core.CleanString(s.ParentEmail, true /* lower */)
	if strings.EqualFold(s.ParentEmail, Placeholder) {
		s.ParentEmail = ""
	}
	if err := validateUpsert(s); err != nil {
		return Student{}, false, err
	}
	now := NowFunc().UTC()

	orig, err := svc.GetByAdmNo(ctx, s.AdmNo)
	switch err {
	case nil:
		orig.Name = keep(core.CleanString(s.Name), orig.Name)
		orig.Gender = keep(core.CleanString(s.Gender), orig.Gender)
		orig.DOB = keep(core.CleanString(s.DOB), orig.DOB)
		orig.Grade = keep(core.CleanString(s.Grade), orig.Grade)
		orig.Stream = keep(core.CleanString(s.Stream), orig.Stream)
		orig.ParentName = keep(core.CleanString(s.ParentName), orig.ParentName)
		orig.ParentPhone = keep(s.ParentPhone, orig.ParentPhone)
		orig.ParentEmail = keep(core.CleanString(s.ParentEmail, true /* lower */), orig.ParentEmail)
		orig.Residence = keep(core.CleanString(s.Residence), orig.Residence)
		orig.UpdatedAt = now
		updated, err := svc.repo.UpdateStudent(ctx, orig)
		return updated, false, err
	case ErrNotFound:
		created := Student{
			ID:          uuid.New().String(),
			AdmNo:       s.AdmNo,
			Name:        keep(core.CleanString(s.Name), Placeholder),
			Gender:      keep(core.CleanString(s.Gender), Placeholder),
			DOB:         keep(core.CleanString(s.DOB), Placeholder),
			Grade:       keep(core.CleanString(s.Grade), Placeholder),
			Stream:      keep(core.CleanString(s.Stream), Placeholder),
			ParentName:  keep(core.CleanString(s.ParentName), Placeholder),
			ParentPhone: keep(s.ParentPhone, Placeholder),
			ParentEmail: core.CleanString(s.ParentEmail, true /* lower */),
			Residence:   keep(core.CleanString(s.Residence), Placeholder),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		created, err = svc.repo.CreateStudent(ctx, created)
		return created, true, err
	default:
		return Student{}, false, err
	}
}

// Delete removes the Student with the given id, provided confirmAdmNo re-types their admission number.
func (svc *Service) Delete(ctx context.Context, id, confirmAdmNo string) error {
	s, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if CleanAdmNo(confirmAdmNo) != s.AdmNo {
		return core.NewValidationError(ErrConfirmationMismatch, core.FieldError{
			Field: "confirm_adm_no",
			Error: ErrConfirmationMismatch.Error(),
		})
	}
	if err := svc.repo.DeleteStudent(ctx, s.ID); err != nil {
		return err
	}
	for _, hook := range svc.hooks {
		if err := hook(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
