package academics

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/core/subject"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrUnknownStudent = errors.New("student not found")
	ErrUnknownSubject = errors.New("subject not found")
)

type (
	Repository interface {
		// UpsertMarks saves marks keyed by (StudentID, SubjectID).
		UpsertMarks(ctx context.Context, marks ...Mark) error
		QueryMarks(ctx context.Context, filter MarkFilter) ([]Mark, error)
		DeleteStudentMarks(ctx context.Context, studentID string) error
		DeleteSubjectMarks(ctx context.Context, subjectID string) error
	}

	Service struct {
		repo     Repository
		students *student.Service
		subjects *subject.Service
	}
)

func NewService(repo Repository, students *student.Service, subjects *subject.Service) *Service {
	svc := &Service{repo: repo, students: students, subjects: subjects}
	students.OnDelete(func(ctx context.Context, s student.Student) error {
		return repo.DeleteStudentMarks(ctx, s.ID)
	})
	return svc
}

// RecordMarks saves a validated MarkSheet. Every referenced student & subject must exist.
func (svc *Service) RecordMarks(ctx context.Context, ms MarkSheet) error {
	marks := make([]Mark, 0, len(ms.Marks))
	now := NowFunc().UTC()
	for i, nm := range ms.Marks {
		if _, err := svc.students.GetByID(ctx, nm.StudentID); err != nil {
			return markRefError(err, i, "student_id", ErrUnknownStudent, student.ErrNotFound)
		}
		if _, err := svc.subjects.GetByID(ctx, nm.SubjectID); err != nil {
			return markRefError(err, i, "subject_id", ErrUnknownSubject, subject.ErrNotFound)
		}
		marks = append(marks, Mark{
			StudentID: nm.StudentID,
			SubjectID: nm.SubjectID,
			Score:     nm.Score,
			Remark:    nm.Remark,
			UpdatedAt: now,
		})
	}
	return svc.repo.UpsertMarks(ctx, marks...)
}

func markRefError(err error, idx int, field string, refErr, notFound error) error {
	if err != notFound {
		return err
	}
	return core.NewValidationError(refErr, core.FieldError{
		Field: "marks[" + strconv.Itoa(idx) + "]." + field,
		Error: refErr.Error(),
	})
}

// Marks returns the marks of the students matching q.
func (svc *Service) Marks(ctx context.Context, q MarkQuery) ([]Mark, error) {
	filter := MarkFilter{SubjectID: q.SubjectID}
	if q.Grade != "" || q.Stream != "" {
		students, err := svc.students.Query(ctx, student.QueryFilter{Grade: q.Grade, Stream: q.Stream})
		if err != nil {
			return nil, err
		}
		filter.StudentIDs = studentIDs(students)
		if len(filter.StudentIDs) == 0 {
			return []Mark{}, nil
		}
	}
	return svc.repo.QueryMarks(ctx, filter)
}

// MeritList ranks the students matching filter.
func (svc *Service) MeritList(ctx context.Context, filter student.QueryFilter) ([]MeritEntry, error) {
	students, err := svc.students.Query(ctx, filter, core.Ordering{Field: "adm_no", Ascending: true})
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return []MeritEntry{}, nil
	}
	marks, err := svc.repo.QueryMarks(ctx, MarkFilter{StudentIDs: studentIDs(students)})
	if err != nil {
		return nil, err
	}
	return BuildMeritList(students, GroupByStudent(marks)), nil
}

// ReportCard gathers a student's results and their position within their grade.
func (svc *Service) ReportCard(ctx context.Context, studentID string) (ReportCard, error) {
	s, err := svc.students.GetByID(ctx, studentID)
	if err != nil {
		return ReportCard{}, err
	}
	subjects, err := svc.subjects.Query(ctx, subject.QueryFilter{})
	if err != nil {
		return ReportCard{}, err
	}
	marks, err := svc.repo.QueryMarks(ctx, MarkFilter{StudentIDs: []string{s.ID}})
	if err != nil {
		return ReportCard{}, err
	}
	bySubject := make(map[string]Mark, len(marks))
	for _, m := range marks {
		bySubject[m.SubjectID] = m
	}

	card := ReportCard{
		StudentID: s.ID,
		AdmNo:     s.AdmNo,
		Name:      s.Name,
		Class:     s.ClassName(),
		Results:   make([]SubjectResult, 0, len(subjects)),
		Stats:     ComputeStudentStats(marks),
	}
	for _, sub := range subjects {
		m, ok := bySubject[sub.ID]
		if !ok {
			continue
		}
		res := SubjectResult{SubjectID: sub.ID, Subject: sub.Name, Category: sub.Category, Score: m.Score, Remark: m.Remark}
		if score, ok := ParseScore(m.Score); ok {
			res.Competency = Competency(score)
		}
		card.Results = append(card.Results, res)
	}

	merit, err := svc.MeritList(ctx, student.QueryFilter{Grade: s.Grade})
	if err != nil {
		return ReportCard{}, err
	}
	card.ClassSize = len(merit)
	for _, e := range merit {
		if e.StudentID == s.ID {
			card.Position = e.Rank
			break
		}
	}
	return card, nil
}

// SubjectPerformance averages the valid scores per subject, best performing first.
func (svc *Service) SubjectPerformance(ctx context.Context) ([]SubjectPerformance, error) {
	subjects, err := svc.subjects.Query(ctx, subject.QueryFilter{})
	if err != nil {
		return nil, err
	}
	marks, err := svc.repo.QueryMarks(ctx, MarkFilter{})
	if err != nil {
		return nil, err
	}

	type acc struct {
		sum float64
		n   int
	}
	totals := make(map[string]*acc, len(subjects))
	for _, m := range marks {
		score, ok := ParseScore(m.Score)
		if !ok {
			continue
		}
		a, found := totals[m.SubjectID]
		if !found {
			a = &acc{}
			totals[m.SubjectID] = a
		}
		a.sum += score
		a.n++
	}

	perf := make([]SubjectPerformance, 0, len(subjects))
	for _, sub := range subjects {
		p := SubjectPerformance{SubjectID: sub.ID, Subject: sub.Name, Category: sub.Category}
		if a, ok := totals[sub.ID]; ok {
			p.Average = core.Round1(a.sum / float64(a.n))
			p.Entries = a.n
			p.Competency = Competency(p.Average)
		}
		perf = append(perf, p)
	}
	sort.SliceStable(perf, func(i, j int) bool { return perf[i].Average > perf[j].Average })
	return perf, nil
}

// SchoolMean is the average of the means of students with at least one valid score.
func (svc *Service) SchoolMean(ctx context.Context) (Stats, error) {
	merit, err := svc.MeritList(ctx, student.QueryFilter{})
	if err != nil {
		return Stats{}, err
	}
	var (
		sum float64
		n   int
	)
	for _, e := range merit {
		if e.Grade == GradePending {
			continue
		}
		sum += e.Mean
		n++
	}
	if n == 0 {
		return Stats{Grade: GradePending}, nil
	}
	mean := core.Round1(sum / float64(n))
	return Stats{Mean: mean, Grade: LetterGrade(mean)}, nil
}

func studentIDs(students []student.Student) []string {
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	return ids
}
