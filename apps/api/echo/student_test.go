package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/academics"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/core/subject"
	"github.com/officialmikal/elimusmart/tests"
)

func Test_studentApi_query(t *testing.T) {
	testutil.ResetDB(t, deps)

	path := func(search, grade, ordering string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if grade != "" {
			v.Add("grade", grade)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		return "/v1/students?" + v.Encode()
	}

	brian := testutil.CreateStudent(t, deps, "1102", "Brian Kipkorir", "Grade 6", "A", 4500)
	kevin := testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)
	sarah := testutil.CreateStudent(t, deps, "1045", "Sarah Mwangi", "Grade 5", "B", 0)

	admin := core.RoleAdmin
	empty := marchallList(t)

	tests := []httpTest{
		{name: "role required", path: "/v1/students", wantCode: http.StatusForbidden, wantData: marchallObj(t, errNoRole)},
		{name: "unknown role", path: "/v1/students", role: "HEADMASTER", wantCode: http.StatusForbidden, wantData: marchallObj(t, errNoRole)},
		{name: "parent not allowed", path: "/v1/students", role: core.RoleParent, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "subject teacher not allowed", path: "/v1/students", role: core.RoleSubjectTeacher, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "get all (by adm_no)", path: "/v1/students", role: admin, wantData: marchallList(t, kevin, sarah, brian)},
		{name: "bursar allowed", path: "/v1/students", role: core.RoleBursar, wantData: marchallList(t, kevin, sarah, brian)},
		{name: "role is case insensitive", path: "/v1/students", role: "class teacher", wantData: marchallList(t, kevin, sarah, brian)},
		// filtering
		{name: "search (unknown)", path: path("lol", "", ""), role: admin, wantData: empty},
		{name: "search by adm_no", path: path("1045", "", ""), role: admin, wantData: marchallList(t, sarah)},
		{name: "search by name", path: path("otieno", "", ""), role: admin, wantData: marchallList(t, kevin)},
		{name: "search (misspelt)", path: path("kevn", "", ""), role: admin, wantData: marchallList(t, kevin)},
		{name: "grade", path: path("", "Grade 6", ""), role: admin, wantData: marchallList(t, kevin, brian)},
		{name: "grade & search", path: path("brian", "grade 6", ""), role: admin, wantData: marchallList(t, brian)},
		// ordering
		{name: "order by -adm_no", path: path("", "", "-adm_no"), role: admin, wantData: marchallList(t, brian, sarah, kevin)},
		{name: "order by name", path: path("", "", "name"), role: admin, wantData: marchallList(t, brian, kevin, sarah)},
		{name: "order by grade,-name", path: path("", "", "grade,-name"), role: admin, wantData: marchallList(t, sarah, kevin, brian)},
		{name: "order by created_at", path: path("", "", "created_at"), role: admin, wantData: marchallList(t, brian, kevin, sarah)},
	}
	runHTTPTests(t, tests)
}

func Test_studentApi_create(t *testing.T) {
	testutil.ResetDB(t, deps)

	kevin := testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)

	required := "this field is required"
	tests := []httpTest{
		{name: "teacher not allowed", method: http.MethodPost, path: "/v1/students", role: core.RoleSubjectTeacher, wantCode: http.StatusForbidden},
		{
			name: "empty body", method: http.MethodPost, path: "/v1/students", role: core.RoleAdmin,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"adm_no": required, "name": required, "grade": required}),
		},
		{
			name: "invalid fields", method: http.MethodPost, path: "/v1/students", role: core.RoleAdmin,
			body: []byte(`{"adm_no": "2001", "name": "Amina", "grade": "Grade 1", "parent_phone": "12345", "dob": "2099-01-01"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"parent_phone": "enter a valid Kenyan mobile number, eg. +254712345678",
				"dob":          "date of birth cannot be in the future",
			}),
		},
		{
			name: "duplicate adm_no", method: http.MethodPost, path: "/v1/students", role: core.RoleAdmin,
			body:     marchallObj(t, student.NewStudent{AdmNo: " " + kevin.AdmNo + " ", Name: "Kevin Two", Grade: "Grade 2"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"adm_no": student.ErrAdmNoExists.Error()}),
		},
		{
			name: "negative opening balance", method: http.MethodPost, path: "/v1/students", role: core.RoleAdmin,
			body:     []byte(`{"adm_no": "2001", "name": "Amina", "grade": "Grade 1", "opening_balance": "-1"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"opening_balance": "balance cannot be negative"}),
		},
	}
	runHTTPTests(t, tests)

	t.Run("created with opening balance", func(t *testing.T) {
		body := []byte(`{"adm_no": "2001", "name": " Amina Hassan ", "grade": "Grade 1", "stream": "B",
			"parent_phone": "0712 000 111", "opening_balance": 3000}`)
		req, rec := newRoleRequest(http.MethodPost, "/v1/students", core.RoleAdmin, body)
		app.ServeHTTP(rec, req)
		if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
			return
		}

		var got student.Student
		decode(t, rec, &got)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "Amina Hassan", got.Name)
		assert.Equal(t, "+254712000111", got.ParentPhone)
		assert.True(t, got.FeeBalance.Equal(decimal.NewFromInt(3000)), "FeeBalance = %v", got.FeeBalance)

		bal, err := deps.FinanceSvc.Balance(context.Background(), got.ID)
		assert.NoError(t, err)
		assert.True(t, bal.Equal(decimal.NewFromInt(3000)), "Balance() = %v", bal)
	})
}

func Test_studentApi_retrieve(t *testing.T) {
	testutil.ResetDB(t, deps)

	kevin := testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)

	tests := []httpTest{
		{name: "parent not allowed", path: "/v1/students/" + kevin.ID, role: core.RoleParent, wantCode: http.StatusForbidden},
		{name: "not found", path: "/v1/students/lol", role: core.RoleAdmin, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "found", path: "/v1/students/" + kevin.ID, role: core.RoleClassTeacher, wantData: marchallObj(t, kevin)},
	}
	runHTTPTests(t, tests)
}

func Test_studentApi_update(t *testing.T) {
	testutil.ResetDB(t, deps)

	kevin := testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)
	sarah := testutil.CreateStudent(t, deps, "1045", "Sarah Mwangi", "Grade 5", "B", 0)

	tests := []httpTest{
		{
			name: "adm_no taken", method: http.MethodPut, path: "/v1/students/" + kevin.ID, role: core.RoleAdmin,
			body:     []byte(`{"adm_no": "` + sarah.AdmNo + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"adm_no": student.ErrAdmNoExists.Error()}),
		},
		{
			name: "invalid gender", method: http.MethodPut, path: "/v1/students/" + kevin.ID, role: core.RoleAdmin,
			body:     []byte(`{"gender": "lol"}`),
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, tests)

	t.Run("blank fields keep their value", func(t *testing.T) {
		req, rec := newRoleRequest(http.MethodPut, "/v1/students/"+kevin.ID, core.RoleClassTeacher, []byte(`{"stream": "B", "name": " "}`))
		app.ServeHTTP(rec, req)
		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}

		var got student.Student
		decode(t, rec, &got)
		assert.Equal(t, kevin.Name, got.Name)
		assert.Equal(t, "B", got.Stream)
		assert.Equal(t, kevin.AdmNo, got.AdmNo)
		assert.True(t, got.FeeBalance.Equal(kevin.FeeBalance), "FeeBalance = %v", got.FeeBalance)
	})
}

func Test_studentApi_destroy(t *testing.T) {
	testutil.ResetDB(t, deps)

	ctx := context.Background()
	kevin := testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)
	math := testutil.CreateSubject(t, deps, "Mathematics", subject.CategoryCBC)
	testutil.RecordMarks(t, deps, kevin.ID, map[string]string{math.ID: "80"})

	path := "/v1/students/" + kevin.ID
	tests := []httpTest{
		{name: "class teacher not allowed", method: http.MethodDelete, path: path, role: core.RoleClassTeacher, wantCode: http.StatusForbidden},
		{
			name: "confirmation required", method: http.MethodDelete, path: path, role: core.RoleAdmin,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"confirm_adm_no": "this field is required"}),
		},
		{
			name: "confirmation mismatch", method: http.MethodDelete, path: path + "?confirm_adm_no=1045", role: core.RoleAdmin,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"confirm_adm_no": student.ErrConfirmationMismatch.Error()}),
		},
		{name: "deleted", method: http.MethodDelete, path: path + "?confirm_adm_no=1023", role: core.RoleAdmin, wantCode: http.StatusNoContent},
		{name: "gone", method: http.MethodDelete, path: path + "?confirm_adm_no=1023", role: core.RoleAdmin, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, tests)

	marks, err := deps.AcademicsSvc.Marks(ctx, academics.MarkQuery{SubjectID: math.ID})
	assert.NoError(t, err)
	assert.Empty(t, marks, "marks of deleted students are removed")
}
