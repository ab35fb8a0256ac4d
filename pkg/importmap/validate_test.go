package importmap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDoctors = []Reference{{ID: "d1", Name: "Dr. Smith"}, {ID: "d2", Name: "Dr. Jones"}}
	testRooms   = []Reference{{ID: "r1", Name: "Room 1"}}
)

// identity maps every field id column onto itself.
func identity() ColumnMapping {
	m := make(ColumnMapping)
	for _, f := range AllFields() {
		m[f.ID] = f.ID
	}
	return m
}

func validRow() RawRow {
	return RawRow{
		FieldDoctorName:      "Dr. Smith",
		FieldRoomName:        "Room 1",
		FieldAppointmentDate: "2024-01-15",
		FieldStartTime:       "09:00",
		FieldEndTime:         "09:30",
		FieldPatientName:     "John Doe",
		FieldPatientPhone:    "1234567890",
	}
}

func withRow(overrides map[string]any) RawRow {
	row := validRow()
	for k, v := range overrides {
		if v == nil {
			delete(row, k)
			continue
		}
		row[k] = v
	}
	return row
}

func TestCheckerScenarios(t *testing.T) {
	tests := []struct {
		name   string
		row    RawRow
		valid  bool
		issues []Cause
	}{
		{name: "valid row", row: validRow(), valid: true},
		{name: "unparseable date", row: withRow(map[string]any{FieldAppointmentDate: "not-a-date"}), issues: []Cause{CauseInvalidDate}},
		{name: "start after end", row: withRow(map[string]any{FieldStartTime: "10:00", FieldEndTime: "09:00"}), issues: []Cause{CauseInvalidTime}},
		{name: "start equals end", row: withRow(map[string]any{FieldStartTime: "09:00", FieldEndTime: "9:00"}), issues: []Cause{CauseInvalidTime}},
		{name: "phone missing", row: withRow(map[string]any{FieldPatientPhone: nil}), issues: []Cause{CauseMissingRequired}},
		{name: "phone blank", row: withRow(map[string]any{FieldPatientPhone: "   "}), issues: []Cause{CauseMissingRequired}},
		{name: "unknown doctor", row: withRow(map[string]any{FieldDoctorName: "Dr. Who"}), issues: []Cause{CauseInvalidDoctor}},
		{name: "unknown room", row: withRow(map[string]any{FieldRoomName: "Room 9"}), issues: []Cause{CauseInvalidRoom}},
		{name: "doctor missing skips lookup", row: withRow(map[string]any{FieldDoctorName: nil}), issues: []Cause{CauseMissingRequired}},
		{name: "end missing skips time check", row: withRow(map[string]any{FieldEndTime: nil, FieldStartTime: "garbage"}), issues: []Cause{CauseMissingRequired}},
		{
			name:   "several causes at once",
			row:    withRow(map[string]any{FieldPatientPhone: nil, FieldAppointmentDate: "nope", FieldRoomName: "Attic"}),
			issues: []Cause{CauseMissingRequired, CauseInvalidRoom, CauseInvalidDate},
		},
		{name: "twelve hour clock", row: withRow(map[string]any{FieldStartTime: "2:30 PM", FieldEndTime: "3:00 pm"}), valid: true},
		{name: "names are case insensitive", row: withRow(map[string]any{FieldDoctorName: "dr. SMITH", FieldRoomName: " room 1 "}), valid: true},
		{name: "numeric phone cell", row: withRow(map[string]any{FieldPatientPhone: float64(5551234)}), valid: true},
	}

	c := NewChecker(identity(), testDoctors, testRooms)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Check(tt.row)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.issues, got.Issues)
		})
	}
}

func TestCheckerResolvesIDs(t *testing.T) {
	got := NewChecker(identity(), testDoctors, testRooms).Check(validRow())
	require.True(t, got.Valid)
	assert.Equal(t, "d1", got.DoctorID)
	assert.Equal(t, "r1", got.RoomID)
	assert.Equal(t, "John Doe", got.Values[FieldPatientName])
}

func TestCheckerUsesMappingColumns(t *testing.T) {
	mapping := ColumnMapping{
		"Name":   FieldPatientName,
		"Mobile": FieldPatientPhone,
		"Doc":    FieldDoctorName,
		"Where":  FieldRoomName,
		"Day":    FieldAppointmentDate,
		"From":   FieldStartTime,
		"To":     FieldEndTime,
	}
	raw := RawRow{
		"Name": "Jane", "Mobile": "555", "Doc": "Dr. Jones", "Where": "Room 1",
		"Day": "15/01/2024", "From": "8:00 AM", "To": "8:15 AM", "Ignored": "x",
	}
	got := NewChecker(mapping, testDoctors, testRooms).Check(raw)
	assert.True(t, got.Valid)
	assert.Equal(t, "d2", got.DoctorID)
	_, ok := got.Values["Ignored"]
	assert.False(t, ok)
}

func TestValidateStats(t *testing.T) {
	rows := []RawRow{
		validRow(),
		withRow(map[string]any{FieldAppointmentDate: "not-a-date"}),
		withRow(map[string]any{FieldStartTime: "10:00", FieldEndTime: "09:00"}),
		withRow(map[string]any{FieldPatientPhone: nil, FieldAppointmentDate: "nope"}),
		withRow(map[string]any{FieldDoctorName: "Nobody", FieldRoomName: "Nowhere"}),
	}

	stats := Validate(rows, identity(), testDoctors, testRooms)
	assert.Equal(t, ValidationStats{
		ValidRows:       1,
		InvalidRows:     4,
		MissingRequired: 1,
		InvalidDoctor:   1,
		InvalidRoom:     1,
		InvalidDate:     2,
		InvalidTime:     1,
	}, stats)
	assert.Equal(t, len(rows), stats.Total())
}

func TestValidateTotalsAlwaysMatch(t *testing.T) {
	variants := []map[string]any{
		{},
		{FieldPatientName: nil},
		{FieldDoctorName: "x"},
		{FieldStartTime: "23:00"},
		{FieldAppointmentDate: "2024-13-01"},
		{FieldRoomName: ""},
	}
	for n := 0; n < 40; n++ {
		rows := make([]RawRow, n)
		for i := range rows {
			rows[i] = withRow(variants[i%len(variants)])
		}
		stats := Validate(rows, identity(), testDoctors, testRooms)
		require.Equal(t, n, stats.ValidRows+stats.InvalidRows, "n=%d", n)
	}
}

func TestValidateEmptyMapping(t *testing.T) {
	stats := Validate([]RawRow{validRow(), validRow()}, ColumnMapping{}, testDoctors, testRooms)
	assert.Equal(t, ValidationStats{InvalidRows: 2, MissingRequired: 2}, stats)
}

func TestPreviewIsBounded(t *testing.T) {
	rows := make([]RawRow, 25)
	for i := range rows {
		rows[i] = withRow(map[string]any{FieldPatientName: fmt.Sprintf("Patient %d", i)})
	}

	preview := Preview(rows, identity(), testDoctors, testRooms)
	require.Len(t, preview, PreviewLimit)
	assert.Equal(t, "Patient 0", preview[0].Values[FieldPatientName])
	assert.Equal(t, "d1", preview[9].DoctorID)

	assert.Len(t, Preview(rows[:3], identity(), testDoctors, testRooms), 3)
	assert.Empty(t, Preview(nil, identity(), testDoctors, testRooms))
}

func TestEvaluateMatchesValidateAndPreview(t *testing.T) {
	rows := []RawRow{validRow(), withRow(map[string]any{FieldRoomName: "Nowhere"})}
	res := Evaluate(rows, identity(), testDoctors, testRooms)
	assert.Equal(t, Validate(rows, identity(), testDoctors, testRooms), res.Stats)
	assert.Equal(t, Preview(rows, identity(), testDoctors, testRooms), res.Preview)
}

func TestEvaluateDoesNotMutateInputs(t *testing.T) {
	row := validRow()
	mapping := identity()
	before := len(mapping)
	Evaluate([]RawRow{row}, mapping, testDoctors, testRooms)
	assert.Equal(t, "Dr. Smith", row[FieldDoctorName])
	assert.Len(t, mapping, before)
}

func TestFingerprint(t *testing.T) {
	rows := []RawRow{validRow()}
	a, err := Fingerprint(rows, identity(), testDoctors, testRooms)
	require.NoError(t, err)
	b, err := Fingerprint([]RawRow{validRow()}, identity(), testDoctors, testRooms)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Fingerprint(rows, ColumnMapping{"x": FieldNotes}, testDoctors, testRooms)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	d, err := Fingerprint(rows, identity(), testDoctors[:1], testRooms)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", CellString(nil))
	assert.Equal(t, "5551234", CellString(float64(5551234)))
	assert.Equal(t, "1.5", CellString(1.5))
	assert.Equal(t, "42", CellString(42))
	assert.Equal(t, "true", CellString(true))
}
