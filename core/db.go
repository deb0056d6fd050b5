package core

import "strings"

// Ordering is a single sort key requested by a caller, eg. `-created_at`.
type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrderings parses a comma separated list of fields; a leading "-" means descending.
func ParseOrderings(s string) []Ordering {
	var ords []Ordering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" || field == "-" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ords = append(ords, Ordering{Field: field, Ascending: !descending})
	}
	return ords
}
