package importmap

import (
	"strings"
	"unicode"
)

// ColumnMapping maps a source column header, exactly as it appears in the file, to a
// field id.
type ColumnMapping map[string]string

// ColumnFor returns the column currently bound to fieldID.
func (m ColumnMapping) ColumnFor(fieldID string) (string, bool) {
	for col, id := range m {
		if id == fieldID {
			return col, true
		}
	}
	return "", false
}

// HasField reports whether any column is bound to fieldID.
func (m ColumnMapping) HasField(fieldID string) bool {
	_, ok := m.ColumnFor(fieldID)
	return ok
}

// Fields returns the set of bound field ids.
func (m ColumnMapping) Fields() map[string]bool {
	out := make(map[string]bool, len(m))
	for _, id := range m {
		out[id] = true
	}
	return out
}

// AutoMap guesses a mapping from source columns to fields.
//
// Fields are resolved in the order given, so with AllFields the required ones win
// ties. For each field an exact (case-insensitive, trimmed) header match is taken
// first; failing that, the first column that contains the label, is contained by it,
// or equals it once whitespace is removed. The fuzzy pass skips fields that are
// already bound but does not check whether the column is taken, so a later field can
// replace an earlier binding for the same column.
func AutoMap(columns []string, fields []FieldDescriptor) ColumnMapping {
	mapping := make(ColumnMapping)

	for _, field := range fields {
		label := strings.ToLower(field.Label)

		if col, ok := exactColumn(columns, label); ok {
			mapping[col] = field.ID
			continue
		}

		if mapping.HasField(field.ID) {
			continue
		}

		if col, ok := fuzzyColumn(columns, label); ok {
			mapping[col] = field.ID
		}
	}

	return mapping
}

func exactColumn(columns []string, label string) (string, bool) {
	for _, col := range columns {
		if normalizeHeader(col) == label {
			return col, true
		}
	}
	return "", false
}

func fuzzyColumn(columns []string, label string) (string, bool) {
	compactLabel := stripSpaces(label)
	for _, col := range columns {
		text := normalizeHeader(col)
		if text == "" {
			continue
		}
		if strings.Contains(text, label) || strings.Contains(label, text) || stripSpaces(text) == compactLabel {
			return col, true
		}
	}
	return "", false
}

func normalizeHeader(col string) string {
	return strings.ToLower(strings.TrimSpace(col))
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
