package subject

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/officialmikal/elimusmart/core"
)

// curriculum categories
const (
	CategoryCBC    = "CBC"
	CategoryJSS    = "JSS"
	CategoryLegacy = "legacy" // 8-4-4
	CategoryOther  = "other"
)

var (
	Categories = []string{CategoryCBC, CategoryJSS, CategoryLegacy, CategoryOther}

	// DefaultSubjects is the learning area list a new school starts with.
	DefaultSubjects = []NewSubject{
		{Name: "Mathematics", Category: CategoryCBC},
		{Name: "English", Category: CategoryCBC},
		{Name: "Kiswahili", Category: CategoryCBC},
		{Name: "Science & Tech", Category: CategoryCBC},
		{Name: "Social Studies", Category: CategoryCBC},
		{Name: "CRE/IRE", Category: CategoryCBC},
		{Name: "Pre-Technical", Category: CategoryJSS},
		{Name: "Creative Arts", Category: CategoryCBC},
	}
)

type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewSubject struct {
	Name     string `json:"name" validate:"required,notblank,max=60"`
	Category string `json:"category" validate:"required,subject_category"`
}

func (ns *NewSubject) Validate(validate *validator.Validate, svc *Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Category = CleanCategory(ns.Category)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ns.Name)
}

// CleanCategory maps case variants of a category to its canonical spelling.
func CleanCategory(cat string) string {
	cat = core.CleanString(cat)
	for _, c := range Categories {
		if strings.EqualFold(c, cat) {
			return c
		}
	}
	return cat
}

type QueryFilter struct {
	Category string `query:"category"`
}

func (qf QueryFilter) Match(s Subject) bool {
	return qf.Category == "" || strings.EqualFold(s.Category, qf.Category)
}
