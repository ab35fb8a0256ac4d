package importmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldDescriptorsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range AllFields() {
		require.False(t, seen[f.ID], "duplicate field id %s", f.ID)
		seen[f.ID] = true
	}
	assert.Len(t, RequiredFields(), 7)
	assert.Len(t, OptionalFields(), 5)

	all := AllFields()
	for i, f := range all {
		assert.Equal(t, i < 7, f.Required, f.ID)
	}
}

func TestAutoMap(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    ColumnMapping
	}{
		{
			name:    "exact labels",
			columns: []string{"Patient Name", "Patient Phone", "Doctor Name", "Room Name", "Appointment Date", "Start Time", "End Time", "Notes"},
			want: ColumnMapping{
				"Patient Name":     FieldPatientName,
				"Patient Phone":    FieldPatientPhone,
				"Doctor Name":      FieldDoctorName,
				"Room Name":        FieldRoomName,
				"Appointment Date": FieldAppointmentDate,
				"Start Time":       FieldStartTime,
				"End Time":         FieldEndTime,
				"Notes":            FieldNotes,
			},
		},
		{
			name:    "case and surrounding spaces",
			columns: []string{"  PATIENT NAME ", "patient phone"},
			want: ColumnMapping{
				"  PATIENT NAME ": FieldPatientName,
				"patient phone":   FieldPatientPhone,
			},
		},
		{
			name:    "whitespace stripped",
			columns: []string{"PatientEmail", "FollowType"},
			want: ColumnMapping{
				"PatientEmail": FieldPatientEmail,
				"FollowType":   FieldFollowType,
			},
		},
		{
			name:    "column containing the label",
			columns: []string{"Primary Doctor Name (attending)"},
			want:    ColumnMapping{"Primary Doctor Name (attending)": FieldDoctorName},
		},
		{
			// "End" is first claimed by endTime and then taken over by patientGender,
			// whose label contains "end". The later binding wins for that column.
			name:    "short headers",
			columns: []string{"Full Name", "Phone", "Doctor", "Room", "Date", "Start", "End"},
			want: ColumnMapping{
				"Phone":  FieldPatientPhone,
				"Doctor": FieldDoctorName,
				"Room":   FieldRoomName,
				"Date":   FieldAppointmentDate,
				"Start":  FieldStartTime,
				"End":    FieldPatientGender,
			},
		},
		{
			name:    "blank headers never match",
			columns: []string{"", "   "},
			want:    ColumnMapping{},
		},
		{
			name:    "nothing matches",
			columns: []string{"foo", "bar"},
			want:    ColumnMapping{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AutoMap(tt.columns, AllFields()))
		})
	}
}

func TestAutoMapLastWriterWinsPerColumn(t *testing.T) {
	// "Name" is contained in the patient, doctor and room labels. Each of those fields
	// binds it in turn and the last one resolved keeps it.
	got := AutoMap([]string{"Name", "Patient Phone"}, AllFields())
	assert.Equal(t, ColumnMapping{
		"Name":          FieldRoomName,
		"Patient Phone": FieldPatientPhone,
	}, got)
}

func TestAutoMapExactBeatsFuzzy(t *testing.T) {
	// "Doctor" would fuzzy-match doctorName, but the exact header wins.
	got := AutoMap([]string{"Doctor", "Doctor Name"}, AllFields())
	assert.Equal(t, FieldDoctorName, got["Doctor Name"])
	_, ok := got["Doctor"]
	assert.False(t, ok)
}

func TestAutoMapFieldIDsAreUnique(t *testing.T) {
	columnSets := [][]string{
		{"Full Name", "Phone", "Doctor", "Room", "Date", "Start", "End"},
		{"name", "name ", "Name", "phone", "Phone number", "doctor", "doc"},
		{"Patient Name", "patient name", "PATIENT NAME", "Notes", "notes"},
		{"a", "e", "i", "o", "u", "t", "n"},
	}
	for _, cols := range columnSets {
		m := AutoMap(cols, AllFields())
		seen := make(map[string]string)
		for col, id := range m {
			prev, dup := seen[id]
			require.False(t, dup, "field %s bound to %q and %q", id, prev, col)
			seen[id] = col
		}
	}
}

func TestAutoMapIdempotent(t *testing.T) {
	cols := []string{"Patient", "Mobile Phone", "Doctor", "Room", "Visit Date", "Start", "End", "Remarks"}
	first := AutoMap(cols, AllFields())
	second := AutoMap(cols, AllFields())
	assert.Equal(t, first, second)
}

func TestColumnMappingHelpers(t *testing.T) {
	m := ColumnMapping{"Doc": FieldDoctorName}
	col, ok := m.ColumnFor(FieldDoctorName)
	assert.True(t, ok)
	assert.Equal(t, "Doc", col)
	assert.False(t, m.HasField(FieldRoomName))
	assert.Equal(t, map[string]bool{FieldDoctorName: true}, m.Fields())
}
