// Package seed loads the demo roster & the default subjects.
package seed

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/officialmikal/elimusmart/core/finance"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/core/subject"
)

var DemoStudents = []student.NewStudent{
	{
		AdmNo:          "1023",
		Name:           "Kevin Otieno",
		Gender:         student.GenderMale,
		DOB:            "2012-05-14",
		Grade:          "Grade 6",
		Stream:         "A",
		ParentName:     "James Otieno",
		ParentPhone:    "+254712345678",
		Residence:      "Nairobi West",
		OpeningBalance: decimal.NewFromInt(12500),
	},
	{
		AdmNo:          "1045",
		Name:           "Sarah Mwangi",
		Gender:         student.GenderFemale,
		DOB:            "2013-02-21",
		Grade:          "Grade 5",
		Stream:         "B",
		ParentName:     "Mary Mwangi",
		ParentPhone:    "+254722334455",
		Residence:      "Syokimau",
		OpeningBalance: decimal.Zero,
	},
	{
		AdmNo:          "1102",
		Name:           "Brian Kipkorir",
		Gender:         student.GenderMale,
		DOB:            "2011-09-30",
		Grade:          "Grade 7 (JSS)",
		Stream:         "Red",
		ParentName:     "Kipkorir Langat",
		ParentPhone:    "+254700112233",
		Residence:      "Langata",
		OpeningBalance: decimal.NewFromInt(4500),
	},
}

// Run creates the default subjects, then the demo students that are not enrolled yet.
func Run(ctx context.Context, students *student.Service, subjects *subject.Service, fin *finance.Service) error {
	if err := subjects.EnsureDefaults(ctx); err != nil {
		return errors.Wrap(err, "seeding subjects")
	}
	for _, ns := range DemoStudents {
		if _, err := students.GetByAdmNo(ctx, ns.AdmNo); err == nil {
			continue
		} else if err != student.ErrNotFound {
			return errors.Wrapf(err, "seeding student %s", ns.AdmNo)
		}
		s, err := students.Create(ctx, ns)
		if err != nil {
			return errors.Wrapf(err, "seeding student %s", ns.AdmNo)
		}
		if err := fin.OpeningBalance(ctx, s.ID, ns.OpeningBalance); err != nil {
			return errors.Wrapf(err, "seeding balance of %s", ns.AdmNo)
		}
	}
	return nil
}
