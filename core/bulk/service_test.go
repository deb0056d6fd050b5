package bulk_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/bulk"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/core/subject"
	"github.com/officialmikal/elimusmart/tests"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		cell    string
		want    string
		wantErr bool
	}{
		{cell: "", want: "0"},
		{cell: "12500", want: "12500"},
		{cell: " 12,500 ", want: "12500"},
		{cell: "KES 4500.50", want: "4500.5"},
		{cell: "Ksh1,000", want: "1000"},
		{cell: "-200", want: "-200"},
		{cell: "lots", wantErr: true},
	}
	for _, tt := range tests {
		got, err := bulk.ParseAmount(tt.cell)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAmount(%q) error = %v, wantErr %v", tt.cell, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %v; want %v", tt.cell, got, tt.want)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		wantErr  error
	}{
		{"roster.csv", bulk.FormatCSV, nil},
		{"ROSTER.CSV", bulk.FormatCSV, nil},
		{"roster.txt", bulk.FormatCSV, nil},
		{"roster", bulk.FormatCSV, nil},
		{"Term 1 Marks.xlsx", bulk.FormatXLSX, nil},
		{"roster.pdf", "", bulk.ErrUnknownFormat},
		{"roster.xls", "", bulk.ErrUnknownFormat},
	}
	for _, tt := range tests {
		got, err := bulk.DetectFormat(tt.filename)
		if got != tt.want || err != tt.wantErr {
			t.Errorf("DetectFormat(%q) = %q, %v; want %q, %v", tt.filename, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestService_ImportStudents(t *testing.T) {
	deps := testutil.NewDeps(core.NewTestConfig())
	ctx := context.Background()
	kevin := testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)

	t.Run("bad files", func(t *testing.T) {
		_, err := deps.BulkSvc.ImportStudents(ctx, strings.NewReader(""), bulk.FormatCSV)
		assert.Equal(t, bulk.ErrEmptyFile, err)

		_, err = deps.BulkSvc.ImportStudents(ctx, strings.NewReader("\n\n"), bulk.FormatCSV)
		assert.Equal(t, bulk.ErrEmptyFile, err)

		_, err = deps.BulkSvc.ImportStudents(ctx, strings.NewReader("ADM\n1023\n"), "pdf")
		assert.Equal(t, bulk.ErrUnknownFormat, err)

		_, err = deps.BulkSvc.ImportStudents(ctx, strings.NewReader("Name,Grade\nAmina,Grade 1\n"), bulk.FormatCSV)
		assert.True(t, core.IsValidationError(err), "missing ADM column: %v", err)

		_, err = deps.BulkSvc.ImportStudents(ctx, strings.NewReader("ADM,Name\n1023,\"Kevin\n"), bulk.FormatCSV)
		assert.True(t, core.IsValidationError(err), "malformed CSV: %v", err)

		_, err = deps.BulkSvc.ImportStudents(ctx, strings.NewReader("not a workbook"), bulk.FormatXLSX)
		assert.True(t, core.IsValidationError(err), "malformed XLSX: %v", err)
	})

	csvData := "\ufeffADM,Full Name,Class,Phone,Email,Fees,Unknown Column\n" +
		"1023,,Grade 7 (JSS),,,8000,x\n" +
		"2001,Amina Hassan,Grade 1,0722 000 111,Mama.Amina@Example.com,,\n" +
		",,,,,,\n" +
		"2002,Baraka Ali,Grade 2,,,-,\n"

	res, err := deps.BulkSvc.ImportStudents(ctx, strings.NewReader(csvData), bulk.FormatCSV)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, bulk.ImportResult{
		Created: 1,
		Updated: 1,
		Skipped: []bulk.SkippedRow{{Row: 5, Reason: `invalid fee balance "-"`}},
	}, res)

	updated, err := deps.StudentSvc.GetByID(ctx, kevin.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Kevin Otieno", updated.Name)
	assert.Equal(t, "Grade 7 (JSS)", updated.Grade)
	assert.Equal(t, kevin.ParentPhone, updated.ParentPhone)

	bal, err := deps.FinanceSvc.Balance(ctx, kevin.ID)
	assert.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(8000)), "Balance() = %v", bal)

	amina, err := deps.StudentSvc.GetByAdmNo(ctx, "2001")
	if assert.NoError(t, err) {
		assert.Equal(t, "+254722000111", amina.ParentPhone)
		assert.Equal(t, "mama.amina@example.com", amina.ParentEmail)
		assert.Equal(t, student.Placeholder, amina.Stream)
	}
	bal, err = deps.FinanceSvc.Balance(ctx, amina.ID)
	assert.NoError(t, err)
	assert.True(t, bal.IsZero(), "blank balance cell: %v", bal)

	_, err = deps.StudentSvc.GetByAdmNo(ctx, "2002")
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_ImportStudents_invalidFields(t *testing.T) {
	deps := testutil.NewDeps(core.NewTestConfig())
	ctx := context.Background()

	csvData := "ADM,Name,Gender,Phone,Email\n" +
		"3001,Alien Child,Alien,,\n" +
		"3002,Juma Hamisi,Male,abc,\n" +
		"3003,Wanjiru Kamau,female,0712 345 678,N/A\n" +
		"3004,Otieno Omondi,M,,\n"

	res, err := deps.BulkSvc.ImportStudents(ctx, strings.NewReader(csvData), bulk.FormatCSV)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, bulk.ImportResult{
		Created: 1,
		Skipped: []bulk.SkippedRow{
			{Row: 2, Reason: "gender: gender must be one of [Male Female]"},
			{Row: 3, Reason: "parent_phone: enter a valid Kenyan mobile number, eg. +254712345678"},
			{Row: 5, Reason: "gender: gender must be one of [Male Female]"},
		},
	}, res)

	for _, adm := range []string{"3001", "3002", "3004"} {
		_, err := deps.StudentSvc.GetByAdmNo(ctx, adm)
		assert.Equal(t, student.ErrNotFound, err, adm)
	}
	wanjiru, err := deps.StudentSvc.GetByAdmNo(ctx, "3003")
	if assert.NoError(t, err) {
		assert.Equal(t, student.GenderFemale, wanjiru.Gender)
		assert.Equal(t, "+254712345678", wanjiru.ParentPhone)
	}
}

func TestService_ImportPayments(t *testing.T) {
	deps := testutil.NewDeps(core.NewTestConfig())
	ctx := context.Background()
	kevin := testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)

	_, err := deps.BulkSvc.ImportPayments(ctx, strings.NewReader("ADM,Method\n1023,Cash\n"), bulk.FormatCSV)
	assert.True(t, core.IsValidationError(err), "missing Amount column: %v", err)

	csvData := "Admission No,Amount Paid,Mode,Ref\n" +
		"1023,\"5,000\",mpesa,QAB12CD34E\n" +
		"1023,-5,Cash,\n" +
		"1023,100,Cheque,\n" +
		",100,Cash,\n" +
		"9999,100,,\n"

	res, err := deps.BulkSvc.ImportPayments(ctx, strings.NewReader(csvData), bulk.FormatCSV)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, bulk.ImportResult{
		Created: 1,
		Skipped: []bulk.SkippedRow{
			{Row: 3, Reason: `invalid amount "-5"`},
			{Row: 4, Reason: `unknown payment method "Cheque"`},
			{Row: 5, Reason: "missing admission number"},
			{Row: 6, Reason: "no student with admission number 9999"},
		},
	}, res)

	bal, err := deps.FinanceSvc.Balance(ctx, kevin.ID)
	assert.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(7500)), "Balance() = %v", bal)
}

func TestService_ImportMarks(t *testing.T) {
	deps := testutil.NewDeps(core.NewTestConfig())
	ctx := context.Background()
	testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 0)
	testutil.CreateSubject(t, deps, "Mathematics", subject.CategoryCBC)

	_, err := deps.BulkSvc.ImportMarks(ctx, strings.NewReader("ADM,Subject\n1023,Mathematics\n"), bulk.FormatCSV)
	assert.True(t, core.IsValidationError(err), "missing Score column: %v", err)

	csvData := "ADM,Learning Area,Marks,Remarks\n" +
		"1023,mathematics,90,Excellent\n" +
		"1023,Music,80,\n" +
		"1023,Mathematics,abc,\n" +
		"9999,Mathematics,50,\n"

	res, err := deps.BulkSvc.ImportMarks(ctx, strings.NewReader(csvData), bulk.FormatCSV)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, bulk.ImportResult{
		Created: 1,
		Skipped: []bulk.SkippedRow{
			{Row: 3, Reason: `unknown subject "Music"`},
			{Row: 4, Reason: `invalid score "abc"`},
			{Row: 5, Reason: "no student with admission number 9999"},
		},
	}, res)

	res, err = deps.BulkSvc.ImportSubjects(ctx, strings.NewReader(csvData), bulk.FormatCSV)
	assert.NoError(t, err)
	assert.Equal(t, 1, res.Created, "only Music is new")

	music, err := deps.SubjectSvc.GetByName(ctx, "music")
	if assert.NoError(t, err) {
		assert.Equal(t, subject.CategoryOther, music.Category)
	}

	res, err = deps.BulkSvc.ImportMarks(ctx, strings.NewReader(csvData), bulk.FormatCSV)
	assert.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Len(t, res.Skipped, 2)

	merit, err := deps.AcademicsSvc.MeritList(ctx, student.QueryFilter{})
	if assert.NoError(t, err) && assert.Len(t, merit, 1) {
		assert.Equal(t, 85.0, merit[0].Mean)
		assert.Equal(t, "A", merit[0].Grade)
	}
}

func TestService_ExportStudents_roundTrip(t *testing.T) {
	deps := testutil.NewDeps(core.NewTestConfig())
	ctx := context.Background()
	testutil.CreateStudent(t, deps, "1045", "Sarah Mwangi", "Grade 5", "B", 0)
	testutil.CreateStudent(t, deps, "999", "Brian Kipkorir", "Grade 5", "B", 4500)
	testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)

	var before bytes.Buffer
	if err := deps.BulkSvc.ExportStudents(ctx, &before, bulk.FormatCSV); err != nil {
		t.Fatalf("ExportStudents(): %v", err)
	}
	lines := strings.Split(strings.TrimSpace(before.String()), "\n")
	if assert.Len(t, lines, 4) {
		assert.Equal(t, strings.Join(bulk.StudentColumns, ","), lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "999,Brian Kipkorir,"), lines[1])
		assert.True(t, strings.HasSuffix(lines[2], ",12500"), lines[2])
	}

	for _, format := range []string{bulk.FormatCSV, bulk.FormatXLSX} {
		t.Run(format, func(t *testing.T) {
			var exported bytes.Buffer
			if err := deps.BulkSvc.ExportStudents(ctx, &exported, format); err != nil {
				t.Fatalf("ExportStudents(): %v", err)
			}
			res, err := deps.BulkSvc.ImportStudents(ctx, &exported, format)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, bulk.ImportResult{Updated: 3, Skipped: []bulk.SkippedRow{}}, res)

			var after bytes.Buffer
			assert.NoError(t, deps.BulkSvc.ExportStudents(ctx, &after, bulk.FormatCSV))
			assert.Equal(t, before.String(), after.String())
		})
	}
}
