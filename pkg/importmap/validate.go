package importmap

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go-clinic/pkg/datetime"
)

// PreviewLimit bounds the number of rows projected for display.
const PreviewLimit = 10

// RawRow is one data row of an uploaded file keyed by header text.
type RawRow map[string]any

// Reference is a doctor or room as the validator needs it.
type Reference struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Cause names a reason a row was rejected.
type Cause string

const (
	CauseMissingRequired Cause = "missing_required"
	CauseInvalidDoctor   Cause = "invalid_doctor"
	CauseInvalidRoom     Cause = "invalid_room"
	CauseInvalidDate     Cause = "invalid_date"
	CauseInvalidTime     Cause = "invalid_time"
)

// MappedRow is a raw row re-keyed by field id.
type MappedRow struct {
	Values   map[string]string `json:"values"`
	DoctorID string            `json:"doctor_id,omitempty"`
	RoomID   string            `json:"room_id,omitempty"`
	Valid    bool              `json:"valid"`
	Issues   []Cause           `json:"issues,omitempty"`
}

// Get returns the value mapped to fieldID. Unmapped fields and blank cells are absent.
func (r MappedRow) Get(fieldID string) (string, bool) {
	v, ok := r.Values[fieldID]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// HasIssue reports whether the row tripped cause.
func (r MappedRow) HasIssue(cause Cause) bool {
	for _, c := range r.Issues {
		if c == cause {
			return true
		}
	}
	return false
}

// ValidationStats counts row outcomes. Every row lands in exactly one of ValidRows and
// InvalidRows; the cause counters are independent of each other.
type ValidationStats struct {
	ValidRows       int `json:"valid_rows"`
	InvalidRows     int `json:"invalid_rows"`
	MissingRequired int `json:"missing_required"`
	InvalidDoctor   int `json:"invalid_doctor"`
	InvalidRoom     int `json:"invalid_room"`
	InvalidDate     int `json:"invalid_date"`
	InvalidTime     int `json:"invalid_time"`
}

// Total is the number of rows the stats were computed over.
func (s ValidationStats) Total() int {
	return s.ValidRows + s.InvalidRows
}

func (s *ValidationStats) add(row MappedRow) {
	if row.Valid {
		s.ValidRows++
	} else {
		s.InvalidRows++
	}
	for _, c := range row.Issues {
		switch c {
		case CauseMissingRequired:
			s.MissingRequired++
		case CauseInvalidDoctor:
			s.InvalidDoctor++
		case CauseInvalidRoom:
			s.InvalidRoom++
		case CauseInvalidDate:
			s.InvalidDate++
		case CauseInvalidTime:
			s.InvalidTime++
		}
	}
}

// Result bundles the stats over all rows with the preview window.
type Result struct {
	Stats   ValidationStats `json:"stats"`
	Preview []MappedRow     `json:"preview"`
}

// Checker evaluates rows against one mapping and one set of reference lists.
type Checker struct {
	mapping ColumnMapping
	doctors map[string]string
	rooms   map[string]string
}

// NewChecker builds the case-insensitive name lookups once.
func NewChecker(mapping ColumnMapping, doctors, rooms []Reference) *Checker {
	return &Checker{
		mapping: mapping,
		doctors: lookup(doctors),
		rooms:   lookup(rooms),
	}
}

// Check maps raw and runs every row rule against it.
func (c *Checker) Check(raw RawRow) MappedRow {
	row := MappedRow{Values: make(map[string]string, len(c.mapping))}
	for col, fieldID := range c.mapping {
		v, ok := raw[col]
		if !ok || v == nil {
			continue
		}
		row.Values[fieldID] = CellString(v)
	}

	for _, f := range requiredFields {
		v, ok := row.Values[f.ID]
		if !ok || strings.TrimSpace(v) == "" {
			row.Issues = append(row.Issues, CauseMissingRequired)
			break
		}
	}

	if name, ok := row.Get(FieldDoctorName); ok {
		if id, found := c.doctors[nameKey(name)]; found {
			row.DoctorID = id
		} else {
			row.Issues = append(row.Issues, CauseInvalidDoctor)
		}
	}

	if name, ok := row.Get(FieldRoomName); ok {
		if id, found := c.rooms[nameKey(name)]; found {
			row.RoomID = id
		} else {
			row.Issues = append(row.Issues, CauseInvalidRoom)
		}
	}

	if date, ok := row.Get(FieldAppointmentDate); ok {
		if _, valid := datetime.ParseDate(date); !valid {
			row.Issues = append(row.Issues, CauseInvalidDate)
		}
	}

	start, hasStart := row.Get(FieldStartTime)
	end, hasEnd := row.Get(FieldEndTime)
	if hasStart && hasEnd && !datetime.ValidTimeRange(start, end) {
		row.Issues = append(row.Issues, CauseInvalidTime)
	}

	row.Valid = len(row.Issues) == 0
	return row
}

// Validate computes stats over every row.
func Validate(rows []RawRow, mapping ColumnMapping, doctors, rooms []Reference) ValidationStats {
	c := NewChecker(mapping, doctors, rooms)
	var stats ValidationStats
	for _, raw := range rows {
		stats.add(c.Check(raw))
	}
	return stats
}

// Preview projects the first PreviewLimit rows with doctor and room ids resolved.
func Preview(rows []RawRow, mapping ColumnMapping, doctors, rooms []Reference) []MappedRow {
	c := NewChecker(mapping, doctors, rooms)
	n := min(len(rows), PreviewLimit)
	out := make([]MappedRow, 0, n)
	for _, raw := range rows[:n] {
		out = append(out, c.Check(raw))
	}
	return out
}

// Evaluate runs Validate and Preview in a single pass.
func Evaluate(rows []RawRow, mapping ColumnMapping, doctors, rooms []Reference) Result {
	c := NewChecker(mapping, doctors, rooms)
	res := Result{Preview: make([]MappedRow, 0, min(len(rows), PreviewLimit))}
	for i, raw := range rows {
		row := c.Check(raw)
		res.Stats.add(row)
		if i < PreviewLimit {
			res.Preview = append(res.Preview, row)
		}
	}
	return res
}

// Fingerprint is a stable key for the inputs of Evaluate.
func Fingerprint(rows []RawRow, mapping ColumnMapping, doctors, rooms []Reference) (string, error) {
	payload, err := json.Marshal(struct {
		Rows    []RawRow      `json:"rows"`
		Mapping ColumnMapping `json:"mapping"`
		Doctors []Reference   `json:"doctors"`
		Rooms   []Reference   `json:"rooms"`
	}{rows, mapping, doctors, rooms})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// CellString renders a parsed cell the way a user typed it.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func lookup(refs []Reference) map[string]string {
	out := make(map[string]string, len(refs))
	for _, r := range refs {
		out[nameKey(r.Name)] = r.ID
	}
	return out
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
