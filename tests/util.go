package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/academics"
	"github.com/officialmikal/elimusmart/core/bulk"
	"github.com/officialmikal/elimusmart/core/finance"
	"github.com/officialmikal/elimusmart/core/messaging"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/core/subject"
	emailsvc "github.com/officialmikal/elimusmart/services/email"
	logsvc "github.com/officialmikal/elimusmart/services/logger"
	mpesasvc "github.com/officialmikal/elimusmart/services/mpesa"
	smssvc "github.com/officialmikal/elimusmart/services/sms"
	inmemdb "github.com/officialmikal/elimusmart/storage/database/inmem"
)

// Outbox is an email service that remembers what it sent.
type Outbox interface {
	core.EmailService
	SentMessages() []core.EmailMessage
}

// Deps holds every service of the app, wired to in-memory storage & mock gateways.
type Deps struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       Outbox
	SMS        *smssvc.ConsoleService

	StudentSvc   *student.Service
	SubjectSvc   *subject.Service
	AcademicsSvc *academics.Service
	FinanceSvc   *finance.Service
	MessagingSvc *messaging.Service
	BulkSvc      *bulk.Service
}

// NewValidator returns a validator with the core & domain validators registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	student.RegisterValidators(validate, translator)
	subject.RegisterValidators(validate, translator)
	finance.RegisterValidators(validate, translator)
	return validate, translator
}

func NewDeps(conf *core.Config) *Deps {
	if conf == nil {
		conf = core.NewTestConfig()
	}
	db, _ := inmemdb.Open()
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	validate, translator := NewValidator()

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	smsSvc := smssvc.NewConsoleServiceMock()

	markRepo := inmemdb.NewMarkRepository(db)
	studentSvc := student.NewService(inmemdb.NewStudentRepository(db))
	subjectSvc := subject.NewService(inmemdb.NewSubjectRepository(db), markRepo)
	academicsSvc := academics.NewService(markRepo, studentSvc, subjectSvc)
	financeSvc := finance.NewService(
		inmemdb.NewLedgerRepository(db),
		studentSvc,
		mpesasvc.NewSimulatedGateway(conf.Mpesa),
		logger,
		finance.Options{Term: conf.CurrentTerm, Year: conf.CurrentYear},
	)
	messagingSvc := messaging.NewService(
		inmemdb.NewBroadcastRepository(db),
		studentSvc,
		financeSvc,
		smsSvc,
		mailSvc,
		logger,
		messaging.Options{SchoolName: conf.SchoolName, FromEmail: conf.DefaultFromEmail(), Term: conf.CurrentTerm},
	)
	if conf.AutoMessaging {
		financeSvc.SetNotifier(messagingSvc)
	}

	return &Deps{
		Conf:         conf,
		DB:           db,
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		Mail:         mailSvc,
		SMS:          smsSvc,
		StudentSvc:   studentSvc,
		SubjectSvc:   subjectSvc,
		AcademicsSvc: academicsSvc,
		FinanceSvc:   financeSvc,
		MessagingSvc: messagingSvc,
		BulkSvc:      bulk.NewService(studentSvc, subjectSvc, academicsSvc, financeSvc),
	}
}

// ResetDB empties the store.
func ResetDB(t *testing.T, deps *Deps) {
	t.Helper()
	deps.DB.Reset()
}

// CreateStudent enrolls a student in grade & stream with an opening balance (KES).
func CreateStudent(t *testing.T, deps *Deps, admNo, name, grade, stream string, balance int64) student.Student {
	t.Helper()
	ctx := context.Background()
	s, err := deps.StudentSvc.Create(ctx, student.NewStudent{
		AdmNo:       admNo,
		Name:        name,
		Gender:      student.GenderFemale,
		Grade:       grade,
		Stream:      stream,
		ParentName:  "Parent of " + name,
		ParentPhone: "+254712345" + pad3(admNo),
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	amount := decimal.NewFromInt(balance)
	if err := deps.FinanceSvc.OpeningBalance(ctx, s.ID, amount); err != nil {
		t.Fatalf("CreateStudent() opening balance failed: %v", err)
	}
	s.FeeBalance = amount
	return s
}

func CreateSubject(t *testing.T, deps *Deps, name, category string) subject.Subject {
	t.Helper()
	s, err := deps.SubjectSvc.Create(context.Background(), subject.NewSubject{Name: name, Category: category})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return s
}

// RecordMarks saves the scores of a student, keyed by subject ID.
func RecordMarks(t *testing.T, deps *Deps, studentID string, scores map[string]string) {
	t.Helper()
	var sheet academics.MarkSheet
	for subjectID, score := range scores {
		sheet.Marks = append(sheet.Marks, academics.NewMark{StudentID: studentID, SubjectID: subjectID, Score: score})
	}
	if err := deps.AcademicsSvc.RecordMarks(context.Background(), sheet); err != nil {
		t.Fatalf("RecordMarks() failed: %v", err)
	}
}

// pad3 returns the last 3 digits of s, left padded with zeros.
func pad3(s string) string {
	digits := []byte("000")
	j := 2
	for i := len(s) - 1; i >= 0 && j >= 0; i-- {
		if s[i] >= '0' && s[i] <= '9' {
			digits[j] = s[i]
			j--
		}
	}
	return string(digits)
}
