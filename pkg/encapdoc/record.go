package encapdoc

import (
	"context"
	"log/slog"
	"slices"
)

// Field names one value of the metadata record
type Field string

const (
	FieldPatientName           Field = "PatientName"
	FieldPatientID             Field = "PatientID"
	FieldPatientBirthDate      Field = "PatientBirthDate"
	FieldPatientSex            Field = "PatientSex"
	FieldConceptCodeValue      Field = "ConceptCodeValue"
	FieldConceptCodingScheme   Field = "ConceptCodingScheme"
	FieldConceptCodeMeaning    Field = "ConceptCodeMeaning"
	FieldDocumentTitle         Field = "DocumentTitle"
	FieldHL7InstanceIdentifier Field = "HL7InstanceIdentifier"
	FieldStudyInstanceUID      Field = "StudyInstanceUID"
	FieldSeriesInstanceUID     Field = "SeriesInstanceUID"
)

// Source is where a field value came from
type Source int

const (
	SourceNone Source = iota
	SourceConfig
	SourceSeriesContext
	SourceMarkup
)

func (s Source) String() string {
	switch s {
	case SourceConfig:
		return "configuration"
	case SourceSeriesContext:
		return "series context"
	case SourceMarkup:
		return "document"
	}
	return "none"
}

// State of a field
type State int

const (
	Unset State = iota
	Set
	Conflicted
)

func (s State) String() string {
	switch s {
	case Set:
		return "set"
	case Conflicted:
		return "conflicted"
	}
	return "unset"
}

// FieldState is the tagged value held for each field
type FieldState struct {
	State  State
	Value  string
	Source Source
}

// Record collects field values from every source. A field set by one source
// cannot be changed by another; a different non-empty value is a conflict.
type Record struct {
	fields           map[Field]FieldState
	preferConfigured bool

	// MediaTypes found in the document, first occurrence order, no duplicates
	MediaTypes []string
}

// NewRecord returns an empty record. With preferConfigured a conflict keeps
// the earlier value and only logs a warning.
func NewRecord(preferConfigured bool) *Record {
	return &Record{fields: make(map[Field]FieldState), preferConfigured: preferConfigured}
}

// Reconcile offers value from src for field
func (r *Record) Reconcile(ctx context.Context, field Field, value string, src Source) error {
	if value == "" {
		return nil
	}
	cur := r.fields[field]
	switch cur.State {
	case Unset:
		r.fields[field] = FieldState{State: Set, Value: value, Source: src}
		return nil
	case Set:
		if cur.Value == value {
			return nil
		}
		if r.preferConfigured {
			slog.WarnContext(ctx, "conflicting values, keeping the first",
				"field", field, "kept", cur.Value, "from", cur.Source.String(),
				"ignored", value, "ignored_from", src.String())
			return nil
		}
		r.fields[field] = FieldState{State: Conflicted, Value: cur.Value, Source: cur.Source}
	}
	return &ConflictError{
		Field:          field,
		Existing:       cur.Value,
		ExistingSource: cur.Source,
		Incoming:       value,
		IncomingSource: src,
	}
}

// Get returns the value of a set field, or ""
func (r *Record) Get(field Field) string {
	if st := r.fields[field]; st.State == Set {
		return st.Value
	}
	return ""
}

// State returns the full state of a field
func (r *Record) State(field Field) FieldState {
	return r.fields[field]
}

// AddMediaType appends mt unless empty or already present
func (r *Record) AddMediaType(mt string) {
	if mt == "" || slices.Contains(r.MediaTypes, mt) {
		return
	}
	r.MediaTypes = append(r.MediaTypes, mt)
}
