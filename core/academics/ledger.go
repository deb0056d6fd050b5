package academics

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/student"
)

// GradePending is the letter given to a student without any valid score.
const GradePending = "P"

// competency bands
const (
	BandExceeding   = "Exceeding Expectations (EE)"
	BandMeeting     = "Meeting Expectations (ME)"
	BandApproaching = "Approaching Expectations (AE)"
	BandBelow       = "Below Expectations (BE)"
)

type Stats struct {
	Mean  float64 `json:"mean"`
	Grade string  `json:"grade"`
}

type MeritEntry struct {
	Rank      int     `json:"rank"`
	StudentID string  `json:"student_id"`
	AdmNo     string  `json:"adm_no"`
	Name      string  `json:"name"`
	Class     string  `json:"class"`
	Mean      float64 `json:"mean"`
	Grade     string  `json:"grade"`
}

// ParseScore returns the numeric value of a recorded score.
// Empty, non-numeric & zero scores count as "not entered".
func ParseScore(score string) (float64, bool) {
	s := strings.TrimSpace(score)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// LetterGrade maps a mean score to A..E.
func LetterGrade(mean float64) string {
	switch {
	case mean >= 80:
		return "A"
	case mean >= 70:
		return "B"
	case mean >= 60:
		return "C"
	case mean >= 50:
		return "D"
	}
	return "E"
}

// Competency maps a single subject score to its CBC band.
func Competency(score float64) string {
	switch {
	case score >= 80:
		return BandExceeding
	case score >= 50:
		return BandMeeting
	case score >= 30:
		return BandApproaching
	}
	return BandBelow
}

// ComputeStudentStats averages the valid scores of marks.
// The grade is taken from the mean after rounding to one decimal.
func ComputeStudentStats(marks []Mark) Stats {
	var (
		sum float64
		n   int
	)
	for _, m := range marks {
		if score, ok := ParseScore(m.Score); ok {
			sum += score
			n++
		}
	}
	if n == 0 {
		return Stats{Mean: 0, Grade: GradePending}
	}
	mean := core.Round1(sum / float64(n))
	return Stats{Mean: mean, Grade: LetterGrade(mean)}
}

// BuildMeritList ranks students by mean score, highest first.
// marks is keyed by student ID. Ties keep the order of students.
func BuildMeritList(students []student.Student, marks map[string][]Mark) []MeritEntry {
	entries := make([]MeritEntry, 0, len(students))
	for _, s := range students {
		stats := ComputeStudentStats(marks[s.ID])
		entries = append(entries, MeritEntry{
			StudentID: s.ID,
			AdmNo:     s.AdmNo,
			Name:      s.Name,
			Class:     s.ClassName(),
			Mean:      stats.Mean,
			Grade:     stats.Grade,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Mean > entries[j].Mean })
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// GroupByStudent indexes marks by student ID.
func GroupByStudent(marks []Mark) map[string][]Mark {
	grouped := make(map[string][]Mark)
	for _, m := range marks {
		grouped[m.StudentID] = append(grouped[m.StudentID], m)
	}
	return grouped
}
