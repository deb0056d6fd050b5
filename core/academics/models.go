package academics

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/officialmikal/elimusmart/core"
)

// Mark is the score & remark of a student in a subject. A missing Mark means "not entered".
type Mark struct {
	StudentID string    `json:"student_id"`
	SubjectID string    `json:"subject_id"`
	Score     string    `json:"score"`
	Remark    string    `json:"remark"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewMark struct {
	StudentID string `json:"student_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	Score     string `json:"score" validate:"score"`
	Remark    string `json:"remark" validate:"max=200"`
}

// MarkSheet is a batch of marks entered at once, eg. a subject column of a class.
type MarkSheet struct {
	Marks []NewMark `json:"marks" validate:"required,min=1,dive"`
}

func (ms *MarkSheet) Validate(validate *validator.Validate) error {
	for i := range ms.Marks {
		ms.Marks[i].Score = core.CleanString(ms.Marks[i].Score)
		ms.Marks[i].Remark = core.CleanString(ms.Marks[i].Remark)
	}
	return validate.Struct(ms)
}

type MarkFilter struct {
	StudentIDs []string
	SubjectID  string
}

type MarkQuery struct {
	Grade     string `query:"grade"`
	Stream    string `query:"stream"`
	SubjectID string `query:"subject_id"`
}

type SubjectResult struct {
	SubjectID  string `json:"subject_id"`
	Subject    string `json:"subject"`
	Category   string `json:"category"`
	Score      string `json:"score"`
	Competency string `json:"competency"`
	Remark     string `json:"remark"`
}

type ReportCard struct {
	StudentID string          `json:"student_id"`
	AdmNo     string          `json:"adm_no"`
	Name      string          `json:"name"`
	Class     string          `json:"class"`
	Results   []SubjectResult `json:"results"`
	Stats
	Position  int `json:"position"`   // in the grade's merit list
	ClassSize int `json:"class_size"` // students in the grade
}

type SubjectPerformance struct {
	SubjectID  string  `json:"subject_id"`
	Subject    string  `json:"subject"`
	Category   string  `json:"category"`
	Average    float64 `json:"average"`
	Entries    int     `json:"entries"`
	Competency string  `json:"competency"`
}
