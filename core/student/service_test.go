package student_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/student"
	inmemdb "github.com/officialmikal/elimusmart/storage/database/inmem"
)

func newService(t *testing.T) *student.Service {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	return student.NewService(inmemdb.NewStudentRepository(db))
}

func TestService_Upsert(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, _, err := svc.Upsert(ctx, student.Student{AdmNo: "  ", Name: "Nobody"})
	assert.True(t, core.IsValidationError(err), "missing adm no: %v", err)

	created, isNew, err := svc.Upsert(ctx, student.Student{AdmNo: " ab12 ", Name: "Amina Hassan", Grade: "Grade 1", ParentPhone: "0712345678"})
	if !assert.NoError(t, err) {
		return
	}
	assert.True(t, isNew)
	assert.Equal(t, "AB12", created.AdmNo)
	assert.Equal(t, "+254712345678", created.ParentPhone)
	assert.Equal(t, student.Placeholder, created.Stream)
	assert.Equal(t, student.Placeholder, created.ParentName)
	assert.Equal(t, "", created.ParentEmail)

	updated, isNew, err := svc.Upsert(ctx, student.Student{AdmNo: "AB12", Stream: "B", ParentEmail: "Mama@Example.com"})
	if !assert.NoError(t, err) {
		return
	}
	assert.False(t, isNew)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Amina Hassan", updated.Name, "blank fields keep the current value")
	assert.Equal(t, "B", updated.Stream)
	assert.Equal(t, "mama@example.com", updated.ParentEmail)

	all, err := svc.Query(ctx, student.QueryFilter{})
	assert.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_Upsert_invalidFields(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	student.NowFunc = func() time.Time { return time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC) }
	defer func() { student.NowFunc = time.Now }()

	tests := []struct {
		name    string
		s       student.Student
		wantErr string
	}{
		{"gender", student.Student{AdmNo: "3001", Gender: "Alien"}, "gender: gender must be one of [Male Female]"},
		{"phone", student.Student{AdmNo: "3002", ParentPhone: "abc"}, "parent_phone: enter a valid Kenyan mobile number, eg. +254712345678"},
		{"dob format", student.Student{AdmNo: "3003", DOB: "12/05/2015"}, "dob: dob does not match the 2006-01-02 format"},
		{"dob in the future", student.Student{AdmNo: "3004", DOB: "2027-01-01"}, "dob: date of birth cannot be in the future"},
		{"email", student.Student{AdmNo: "3005", ParentEmail: "mama at example"}, "parent_email: parent_email must be a valid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Upsert(ctx, tt.s)
			assert.True(t, core.IsValidationError(err), "Upsert() error = %v", err)
			if err != nil {
				assert.Equal(t, tt.wantErr, err.Error())
			}
			_, err = svc.GetByAdmNo(ctx, tt.s.AdmNo)
			assert.Equal(t, student.ErrNotFound, err)
		})
	}

	s, _, err := svc.Upsert(ctx, student.Student{
		AdmNo:       "3006",
		Gender:      " female ",
		DOB:         student.Placeholder,
		ParentPhone: student.Placeholder,
		ParentEmail: student.Placeholder,
	})
	if assert.NoError(t, err, "placeholders are not validated") {
		assert.Equal(t, student.GenderFemale, s.Gender)
		assert.Equal(t, student.Placeholder, s.DOB)
	}
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	var deleted []string
	svc.OnDelete(func(_ context.Context, s student.Student) error {
		deleted = append(deleted, s.AdmNo)
		return nil
	})

	kevin, err := svc.Create(ctx, student.NewStudent{AdmNo: "1023", Name: "Kevin Otieno", Grade: "Grade 6"})
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	assert.Equal(t, student.ErrNotFound, svc.Delete(ctx, "lol", "1023"))

	err = svc.Delete(ctx, kevin.ID, "1045")
	assert.True(t, core.IsValidationError(err), "wrong confirmation: %v", err)
	assert.Empty(t, deleted)

	assert.NoError(t, svc.Delete(ctx, kevin.ID, " 1023 "))
	assert.Equal(t, []string{"1023"}, deleted)

	_, err = svc.GetByID(ctx, kevin.ID)
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_Query_ordering(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	for _, ns := range []student.NewStudent{
		{AdmNo: "1023", Name: "Kevin Otieno", Grade: "Grade 6"},
		{AdmNo: "999", Name: "Brian Kipkorir", Grade: "Grade 10"},
		{AdmNo: "1045", Name: "sarah Mwangi", Grade: "PP2"},
		{AdmNo: "2001", Name: "Amina Hassan", Grade: "Grade 7 (JSS)"},
	} {
		if _, err := svc.Create(ctx, ns); err != nil {
			t.Fatalf("Create(): %v", err)
		}
	}

	admNos := func(students []student.Student) []string {
		var nos []string
		for _, s := range students {
			nos = append(nos, s.AdmNo)
		}
		return nos
	}

	tests := []struct {
		ordering string
		want     []string
	}{
		{"", []string{"1023", "999", "1045", "2001"}},
		{"adm_no", []string{"999", "1023", "1045", "2001"}},
		{"-adm_no", []string{"2001", "1045", "1023", "999"}},
		{"name", []string{"2001", "999", "1023", "1045"}},
		{"grade", []string{"1045", "1023", "2001", "999"}},
		{"-created_at", []string{"2001", "1045", "999", "1023"}},
	}
	for _, tt := range tests {
		t.Run(tt.ordering, func(t *testing.T) {
			got, err := svc.Query(ctx, student.QueryFilter{}, core.ParseOrderings(tt.ordering)...)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, admNos(got))
		})
	}
}
