package importmap

// Field ids. These are the values of a ColumnMapping.
const (
	FieldPatientName     = "patientName"
	FieldPatientPhone    = "patientPhone"
	FieldDoctorName      = "doctorName"
	FieldRoomName        = "roomName"
	FieldAppointmentDate = "appointmentDate"
	FieldStartTime       = "startTime"
	FieldEndTime         = "endTime"
	FieldPatientEmail    = "patientEmail"
	FieldPatientGender   = "patientGender"
	FieldStatus          = "status"
	FieldFollowType      = "followType"
	FieldNotes           = "notes"
)

// FieldDescriptor describes one appointment attribute a spreadsheet column can feed.
type FieldDescriptor struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

var requiredFields = []FieldDescriptor{
	{ID: FieldPatientName, Label: "Patient Name", Required: true, Description: "Full name of the patient"},
	{ID: FieldPatientPhone, Label: "Patient Phone", Required: true, Description: "Contact phone, used to match existing patients"},
	{ID: FieldDoctorName, Label: "Doctor Name", Required: true, Description: "Must match an existing doctor (case-insensitive)"},
	{ID: FieldRoomName, Label: "Room Name", Required: true, Description: "Must match an existing room (case-insensitive)"},
	{ID: FieldAppointmentDate, Label: "Appointment Date", Required: true, Description: "YYYY-MM-DD, DD/MM/YYYY, DD-MM-YYYY or YYYY/MM/DD"},
	{ID: FieldStartTime, Label: "Start Time", Required: true, Description: "HH:MM (24h) or H:MM AM/PM"},
	{ID: FieldEndTime, Label: "End Time", Required: true, Description: "HH:MM (24h) or H:MM AM/PM, after the start time"},
}

var optionalFields = []FieldDescriptor{
	{ID: FieldPatientEmail, Label: "Patient Email", Description: "Optional email address"},
	{ID: FieldPatientGender, Label: "Patient Gender", Description: "male, female or other"},
	{ID: FieldStatus, Label: "Status", Description: "Appointment status, defaults to scheduled"},
	{ID: FieldFollowType, Label: "Follow Type", Description: "new or follow_up"},
	{ID: FieldNotes, Label: "Notes", Description: "Free text"},
}

// RequiredFields returns a copy of the required descriptors in declaration order.
func RequiredFields() []FieldDescriptor {
	return append([]FieldDescriptor(nil), requiredFields...)
}

// OptionalFields returns a copy of the optional descriptors in declaration order.
func OptionalFields() []FieldDescriptor {
	return append([]FieldDescriptor(nil), optionalFields...)
}

// AllFields returns required descriptors followed by optional ones.
func AllFields() []FieldDescriptor {
	all := make([]FieldDescriptor, 0, len(requiredFields)+len(optionalFields))
	all = append(all, requiredFields...)
	return append(all, optionalFields...)
}

func FieldByID(id string) (FieldDescriptor, bool) {
	for _, f := range AllFields() {
		if f.ID == id {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}
