package bulk

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/academics"
	"github.com/officialmikal/elimusmart/core/finance"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/core/subject"
)

// student fields
const (
	fldAdmNo       = "adm_no"
	fldName        = "name"
	fldGender      = "gender"
	fldDOB         = "dob"
	fldGrade       = "grade"
	fldStream      = "stream"
	fldParentName  = "parent_name"
	fldParentPhone = "parent_phone"
	fldParentEmail = "parent_email"
	fldResidence   = "residence"
	fldBalance     = "fee_balance"

	// payment fields
	fldAmount    = "amount"
	fldMethod    = "method"
	fldReference = "reference"

	// mark fields
	fldSubject = "subject"
	fldScore   = "score"
	fldRemark  = "remark"
)

var (
	admAliases = []string{"ADM", "admNo", "Adm No", "Admission Number", "Admission No", "adm_no"}

	studentAliases = map[string][]string{
		fldAdmNo:       admAliases,
		fldName:        {"Name", "Student Name", "Full Name"},
		fldGender:      {"Gender", "Sex"},
		fldDOB:         {"DOB", "Date of Birth", "Birth Date"},
		fldGrade:       {"Grade", "Class"},
		fldStream:      {"Stream"},
		fldParentName:  {"Parent Name", "Parent", "Guardian", "Guardian Name", "parentName"},
		fldParentPhone: {"Parent Phone", "Phone", "Guardian Phone", "Contact", "parentPhone"},
		fldParentEmail: {"Parent Email", "Email", "parentEmail"},
		fldResidence:   {"Residence", "Address", "Location"},
		fldBalance:     {"Fee Balance", "Balance", "feeBalance", "Fees"},
	}
	paymentAliases = map[string][]string{
		fldAdmNo:     admAliases,
		fldAmount:    {"Amount", "Paid", "Amount Paid"},
		fldMethod:    {"Method", "Payment Method", "Mode"},
		fldReference: {"Reference", "Ref", "Transaction Code", "Code"},
	}
	markAliases = map[string][]string{
		fldAdmNo:   admAliases,
		fldSubject: {"Subject", "Learning Area"},
		fldScore:   {"Score", "Marks", "Mark"},
		fldRemark:  {"Remark", "Remarks", "Comment"},
	}

	StudentColumns = []string{
		"ADM", "Name", "Gender", "DOB", "Grade", "Stream",
		"Parent Name", "Parent Phone", "Parent Email", "Residence", "Fee Balance",
	}
	PaymentColumns   = []string{"Receipt No", "Date", "ADM", "Student", "Amount", "Method", "Reference"}
	MeritListColumns = []string{"Rank", "ADM", "Name", "Class", "Mean", "Grade"}
)

type (
	// SkippedRow is a record left out of an import. Row is the 1-based line in the file.
	SkippedRow struct {
		Row    int    `json:"row"`
		Reason string `json:"reason"`
	}

	ImportResult struct {
		Created int          `json:"created"`
		Updated int          `json:"updated"`
		Skipped []SkippedRow `json:"skipped"`
	}

	Service struct {
		students  *student.Service
		subjects  *subject.Service
		academics *academics.Service
		finance   *finance.Service
	}
)

func (res *ImportResult) skip(idx int, reason string) {
	// +2: the header row & 1-based line numbers
	res.Skipped = append(res.Skipped, SkippedRow{Row: idx + 2, Reason: reason})
}

func NewService(
	students *student.Service,
	subjects *subject.Service,
	academicsSvc *academics.Service,
	financeSvc *finance.Service,
) *Service {
	return &Service{
		students:  students,
		subjects:  subjects,
		academics: academicsSvc,
		finance:   financeSvc,
	}
}

// ImportStudents upserts the roster rows, matching students by admission number.
// A Fee Balance cell sets the balance through a ledger adjustment.
func (svc *Service) ImportStudents(ctx context.Context, r io.Reader, format string) (ImportResult, error) {
	tbl, err := readTable(r, format)
	if err != nil {
		return ImportResult{}, err
	}
	cols := resolve(tbl.header, studentAliases)
	if !cols.has(fldAdmNo) {
		return ImportResult{}, missingColumn("ADM")
	}

	res := ImportResult{Skipped: []SkippedRow{}}
	for i, row := range tbl.rows {
		if isBlank(row) {
			continue
		}
		adm := cols.get(row, fldAdmNo)
		if adm == "" {
			res.skip(i, "missing admission number")
			continue
		}
		var balance *decimal.Decimal
		if cell := cols.get(row, fldBalance); cell != "" {
			bal, err := ParseAmount(cell)
			if err != nil {
				res.skip(i, fmt.Sprintf("invalid fee balance %q", cell))
				continue
			}
			balance = &bal
		}

		s, created, err := svc.students.Upsert(ctx, student.Student{
			AdmNo:       adm,
			Name:        cols.get(row, fldName),
			Gender:      cols.get(row, fldGender),
			DOB:         cols.get(row, fldDOB),
			Grade:       cols.get(row, fldGrade),
			Stream:      cols.get(row, fldStream),
			ParentName:  cols.get(row, fldParentName),
			ParentPhone: cols.get(row, fldParentPhone),
			ParentEmail: cols.get(row, fldParentEmail),
			Residence:   cols.get(row, fldResidence),
		})
		if err != nil {
			if core.IsValidationError(err) {
				res.skip(i, err.Error())
				continue
			}
			return res, errors.Wrapf(err, "importing row %d", i+2)
		}
		if balance != nil {
			if err := svc.finance.SetBalance(ctx, s.ID, *balance); err != nil {
				return res, errors.Wrapf(err, "setting balance of %s", s.AdmNo)
			}
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

// ImportPayments records a payment per row. Rows of unknown students are skipped.
func (svc *Service) ImportPayments(ctx context.Context, r io.Reader, format string) (ImportResult, error) {
	tbl, err := readTable(r, format)
	if err != nil {
		return ImportResult{}, err
	}
	cols := resolve(tbl.header, paymentAliases)
	if !cols.has(fldAdmNo) {
		return ImportResult{}, missingColumn("ADM")
	}
	if !cols.has(fldAmount) {
		return ImportResult{}, missingColumn("Amount")
	}

	res := ImportResult{Skipped: []SkippedRow{}}
	for i, row := range tbl.rows {
		if isBlank(row) {
			continue
		}
		adm := cols.get(row, fldAdmNo)
		if adm == "" {
			res.skip(i, "missing admission number")
			continue
		}
		s, err := svc.students.GetByAdmNo(ctx, adm)
		if err != nil {
			if err == student.ErrNotFound {
				res.skip(i, fmt.Sprintf("no student with admission number %s", adm))
				continue
			}
			return res, errors.Wrapf(err, "importing row %d", i+2)
		}
		amount, err := ParseAmount(cols.get(row, fldAmount))
		if err != nil || !amount.IsPositive() {
			res.skip(i, fmt.Sprintf("invalid amount %q", cols.get(row, fldAmount)))
			continue
		}
		method := finance.CleanMethod(cols.get(row, fldMethod))
		if method == "" {
			method = finance.MethodCash
		}
		if !isMethod(method) {
			res.skip(i, fmt.Sprintf("unknown payment method %q", method))
			continue
		}
		ref := cols.get(row, fldReference)
		if ref == "" {
			ref = finance.UnknownReference
		}

		if _, err := svc.finance.RecordPayment(ctx, finance.NewPayment{
			StudentID: s.ID,
			Amount:    amount,
			Method:    method,
			Reference: ref,
		}); err != nil {
			return res, errors.Wrapf(err, "importing row %d", i+2)
		}
		res.Created++
	}
	return res, nil
}

// ImportMarks records a mark per row, matching subjects by name.
func (svc *Service) ImportMarks(ctx context.Context, r io.Reader, format string) (ImportResult, error) {
	tbl, err := readTable(r, format)
	if err != nil {
		return ImportResult{}, err
	}
	cols := resolve(tbl.header, markAliases)
	for _, fld := range []string{fldAdmNo, fldSubject, fldScore} {
		if !cols.has(fld) {
			return ImportResult{}, missingColumn(markAliases[fld][0])
		}
	}

	existing, err := svc.academics.Marks(ctx, academics.MarkQuery{})
	if err != nil {
		return ImportResult{}, err
	}
	entered := make(map[[2]string]bool, len(existing))
	for _, m := range existing {
		entered[[2]string{m.StudentID, m.SubjectID}] = true
	}

	res := ImportResult{Skipped: []SkippedRow{}}
	for i, row := range tbl.rows {
		if isBlank(row) {
			continue
		}
		adm := cols.get(row, fldAdmNo)
		if adm == "" {
			res.skip(i, "missing admission number")
			continue
		}
		s, err := svc.students.GetByAdmNo(ctx, adm)
		if err == student.ErrNotFound {
			res.skip(i, fmt.Sprintf("no student with admission number %s", adm))
			continue
		} else if err != nil {
			return res, errors.Wrapf(err, "importing row %d", i+2)
		}
		name := cols.get(row, fldSubject)
		sub, err := svc.subjects.GetByName(ctx, name)
		if err == subject.ErrNotFound {
			res.skip(i, fmt.Sprintf("unknown subject %q", name))
			continue
		} else if err != nil {
			return res, errors.Wrapf(err, "importing row %d", i+2)
		}
		score := cols.get(row, fldScore)
		if !validScore(score) {
			res.skip(i, fmt.Sprintf("invalid score %q", score))
			continue
		}

		if err := svc.academics.RecordMarks(ctx, academics.MarkSheet{Marks: []academics.NewMark{{
			StudentID: s.ID,
			SubjectID: sub.ID,
			Score:     score,
			Remark:    cols.get(row, fldRemark),
		}}}); err != nil {
			return res, errors.Wrapf(err, "importing row %d", i+2)
		}
		key := [2]string{s.ID, sub.ID}
		if entered[key] {
			res.Updated++
		} else {
			entered[key] = true
			res.Created++
		}
	}
	return res, nil
}

// ImportSubjects creates the subjects named in a marks file that do not exist yet.
func (svc *Service) ImportSubjects(ctx context.Context, r io.Reader, format string) (ImportResult, error) {
	tbl, err := readTable(r, format)
	if err != nil {
		return ImportResult{}, err
	}
	cols := resolve(tbl.header, markAliases)
	if !cols.has(fldSubject) {
		return ImportResult{}, missingColumn(markAliases[fldSubject][0])
	}

	res := ImportResult{Skipped: []SkippedRow{}}
	for _, row := range tbl.rows {
		name := cols.get(row, fldSubject)
		if name == "" {
			continue
		}
		if _, err := svc.subjects.GetByName(ctx, name); err == nil {
			continue
		} else if err != subject.ErrNotFound {
			return res, errors.Wrapf(err, "finding subject %q", name)
		}
		if _, err := svc.subjects.Create(ctx, subject.NewSubject{Name: name, Category: subject.CategoryOther}); err != nil {
			return res, errors.Wrapf(err, "creating subject %q", name)
		}
		res.Created++
	}
	return res, nil
}

// ExportStudents writes the roster, with current balances, ordered by admission number.
func (svc *Service) ExportStudents(ctx context.Context, w io.Writer, format string) error {
	students, err := svc.students.Query(ctx, student.QueryFilter{}, core.Ordering{Field: "adm_no", Ascending: true})
	if err != nil {
		return err
	}
	if students, err = svc.finance.AttachBalances(ctx, students); err != nil {
		return err
	}
	return writeTable(w, format, "Students", StudentColumns, StudentRows(students))
}

// ExportPayments writes the payments, oldest first.
func (svc *Service) ExportPayments(ctx context.Context, w io.Writer, format string) error {
	payments, err := svc.finance.Payments(ctx, finance.PaymentFilter{})
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(payments))
	for _, p := range payments {
		rows = append(rows, []string{
			p.ReceiptNo,
			p.CreatedAt.Format("2006-01-02 15:04"),
			p.AdmNo,
			p.StudentName,
			p.Amount.String(),
			p.Method,
			p.Reference,
		})
	}
	return writeTable(w, format, "Payments", PaymentColumns, rows)
}

// ExportMeritList writes a ranked merit list.
func ExportMeritList(w io.Writer, format string, entries []academics.MeritEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, MeritListRow(e))
	}
	return writeTable(w, format, "Merit List", MeritListColumns, rows)
}

func StudentRows(students []student.Student) [][]string {
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		rows = append(rows, []string{
			s.AdmNo, s.Name, s.Gender, s.DOB, s.Grade, s.Stream,
			s.ParentName, s.ParentPhone, s.ParentEmail, s.Residence, s.FeeBalance.String(),
		})
	}
	return rows
}

func MeritListRow(e academics.MeritEntry) []string {
	return []string{
		fmt.Sprint(e.Rank), e.AdmNo, e.Name, e.Class, fmt.Sprintf("%.1f", e.Mean), e.Grade,
	}
}

// ParseAmount reads a money cell such as "12,500", "KES 4500.50" or "".
// An empty cell is 0.
func ParseAmount(cell string) (decimal.Decimal, error) {
	s := strings.TrimSpace(cell)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "KES"), "Ksh")
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func validScore(score string) bool {
	if score == "" {
		return true
	}
	f, err := decimal.NewFromString(score)
	if err != nil {
		return false
	}
	return !f.IsNegative() && f.LessThanOrEqual(decimal.NewFromInt(100))
}

func isMethod(method string) bool {
	for _, m := range finance.Methods {
		if m == method {
			return true
		}
	}
	return false
}

func missingColumn(name string) error {
	return core.NewValidationError(nil, core.FieldError{Field: "file", Error: fmt.Sprintf("missing %s column", name)})
}
