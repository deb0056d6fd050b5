package echoapi_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/bulk"
	"github.com/officialmikal/elimusmart/core/finance"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/tests"
)

func newUploadRequest(t *testing.T, path, role, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile(): %v", err)
	}
	if _, err = part.Write(content); err != nil {
		t.Fatalf("part.Write(): %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("w.Close(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Role", role)
	return req, httptest.NewRecorder()
}

func Test_bulkApi_importStudents(t *testing.T) {
	testutil.ResetDB(t, deps)

	ctx := context.Background()
	kevin := testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)

	csvData := "\ufeffAdmission No,Student Name,Class,Stream,Balance\n" +
		"1023,,,,\"10,000\"\n" +
		"2001,Amina Hassan,Grade 1,B,3000\n" +
		",Nobody,Grade 2,A,0\n" +
		"2002,Baraka Ali,Grade 2,A,lots\n"

	tests := []httpTest{
		{name: "bursar not allowed", method: http.MethodPost, path: "/v1/import/students", role: core.RoleBursar, body: []byte(csvData), wantCode: http.StatusForbidden},
		{
			name: "empty file", method: http.MethodPost, path: "/v1/import/students", role: core.RoleAdmin,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"file": bulk.ErrEmptyFile.Error()}),
		},
		{
			name: "unknown format", method: http.MethodPost, path: "/v1/import/students?format=pdf", role: core.RoleAdmin,
			body: []byte(csvData), wantCode: http.StatusBadRequest,
		},
		{
			name: "imported", method: http.MethodPost, path: "/v1/import/students", role: core.RoleAdmin,
			body: []byte(csvData),
			wantData: marchallObj(t, bulk.ImportResult{
				Created: 1,
				Updated: 1,
				Skipped: []bulk.SkippedRow{
					{Row: 4, Reason: "missing admission number"},
					{Row: 5, Reason: `invalid fee balance "lots"`},
				},
			}),
		},
	}
	runHTTPTests(t, tests)

	updated, err := deps.StudentSvc.GetByID(ctx, kevin.ID)
	assert.NoError(t, err)
	assert.Equal(t, kevin.Name, updated.Name, "blank cells keep the current value")

	bal, err := deps.FinanceSvc.Balance(ctx, kevin.ID)
	assert.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(10000)), "Balance() = %v", bal)

	amina, err := deps.StudentSvc.GetByAdmNo(ctx, "2001")
	assert.NoError(t, err)
	assert.Equal(t, "Amina Hassan", amina.Name)
	assert.Equal(t, student.Placeholder, amina.ParentName)
}

func Test_bulkApi_importStudents_badFiles(t *testing.T) {
	testutil.ResetDB(t, deps)
	ctx := context.Background()

	fileErr := func(t *testing.T, rec *httptest.ResponseRecorder) {
		var data map[string]string
		decode(t, rec, &data)
		assert.Contains(t, data, "file")
	}

	t.Run("malformed CSV", func(t *testing.T) {
		req, rec := newRoleRequest(http.MethodPost, "/v1/import/students", core.RoleAdmin, []byte("ADM,Name\n1023,\"Kevin\n"))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		fileErr(t, rec)
	})

	t.Run("corrupt XLSX", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/import/students", core.RoleAdmin, "roster.xlsx", []byte("not a workbook"))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		fileErr(t, rec)
	})

	row := "2001,Amina Hassan\n"
	tooLarge := []byte("ADM,Name\n" + strings.Repeat(row, (10<<20)/len(row)+1))

	t.Run("too large", func(t *testing.T) {
		req, rec := newRoleRequest(http.MethodPost, "/v1/import/students", core.RoleAdmin, tooLarge)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("too large without content length", func(t *testing.T) {
		req, rec := newRoleRequest(http.MethodPost, "/v1/import/students", core.RoleAdmin, tooLarge)
		req.ContentLength = -1
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("too large form file", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/import/students", core.RoleAdmin, "roster.csv", tooLarge)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	_, err := deps.StudentSvc.GetByAdmNo(ctx, "2001")
	assert.Equal(t, student.ErrNotFound, err, "nothing is imported from a rejected file")
}

func Test_bulkApi_importPayments(t *testing.T) {
	testutil.ResetDB(t, deps)

	ctx := context.Background()
	kevin := testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)

	csvData := "ADM,Amount\n1023,5000\n9999,100\n"
	req, rec := newRoleRequest(http.MethodPost, "/v1/import/payments", core.RoleBursar, []byte(csvData))
	app.ServeHTTP(rec, req)
	if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
		return
	}

	var res bulk.ImportResult
	decode(t, rec, &res)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, []bulk.SkippedRow{{Row: 3, Reason: "no student with admission number 9999"}}, res.Skipped)

	bal, err := deps.FinanceSvc.Balance(ctx, kevin.ID)
	assert.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(7500)), "Balance() = %v", bal)

	payments, err := deps.FinanceSvc.Payments(ctx, finance.PaymentFilter{StudentID: kevin.ID})
	assert.NoError(t, err)
	if assert.Len(t, payments, 1) {
		assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(5000)))
		assert.Equal(t, finance.MethodCash, payments[0].Method)
		assert.Equal(t, finance.UnknownReference, payments[0].Reference)
	}

	t.Run("export", func(t *testing.T) {
		req, rec := newRoleRequest(http.MethodGet, "/v1/export/payments", core.RoleBursar)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `attachment; filename="payments.csv"`, rec.Header().Get("Content-Disposition"))

		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		if assert.Len(t, lines, 2) {
			assert.Equal(t, strings.Join(bulk.PaymentColumns, ","), lines[0])
			assert.Contains(t, lines[1], ",1023,Kevin Otieno,5000,Cash,Unknown")
		}
	})
}

func Test_bulkApi_roundTrip(t *testing.T) {
	testutil.ResetDB(t, deps)

	testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)
	testutil.CreateStudent(t, deps, "1045", "Sarah Mwangi", "Grade 5", "B", 0)

	export := func(format string) []byte {
		req, rec := newRoleRequest(http.MethodGet, "/v1/export/students?format="+format, core.RoleAdmin)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("export failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		return rec.Body.Bytes()
	}

	for _, format := range []string{bulk.FormatCSV, bulk.FormatXLSX} {
		t.Run(format, func(t *testing.T) {
			first := export(bulk.FormatCSV)

			req, rec := newUploadRequest(t, "/v1/import/students", core.RoleAdmin, "students."+format, export(format))
			app.ServeHTTP(rec, req)
			if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
				return
			}
			var res bulk.ImportResult
			decode(t, rec, &res)
			assert.Equal(t, bulk.ImportResult{Updated: 2, Skipped: []bulk.SkippedRow{}}, res)

			assert.Equal(t, string(first), string(export(bulk.FormatCSV)), "re-importing an export changes nothing")
		})
	}
}
