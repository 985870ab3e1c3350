package cda

import (
	"errors"
	"fmt"
	"strings"
)

// Field names a value carried from a CDA document into the DICOM header
type Field string

const (
	PatientName           Field = "PatientName"
	PatientID             Field = "PatientID"
	PatientBirthDate      Field = "PatientBirthDate"
	PatientSex            Field = "PatientSex"
	ConceptCodeValue      Field = "ConceptCodeValue"
	ConceptCodingScheme   Field = "ConceptCodingScheme"
	ConceptCodeMeaning    Field = "ConceptCodeMeaning"
	DocumentTitle         Field = "DocumentTitle"
	HL7InstanceIdentifier Field = "HL7InstanceIdentifier"
	MediaTypes            Field = "MediaTypes"
)

// Fields lists every resolvable field in extraction order
var Fields = []Field{
	PatientName,
	PatientID,
	PatientBirthDate,
	PatientSex,
	ConceptCodeValue,
	ConceptCodingScheme,
	ConceptCodeMeaning,
	DocumentTitle,
	HL7InstanceIdentifier,
	MediaTypes,
}

// ErrUnknownField is returned for fields without a search mapping
var ErrUnknownField = errors.New("no search path for field")

// SearchKey locates values in a document: the element at Path, then either
// the attribute Attr or, when Attr is empty, the element text. Anchored keys
// start below the root element; other keys match Path as a suffix of any
// element's ancestry.
type SearchKey struct {
	Path     []string
	Attr     string
	Anchored bool
}

func (k SearchKey) String() string {
	var b strings.Builder
	if k.Anchored {
		b.WriteString("/")
	} else {
		b.WriteString("//")
	}
	b.WriteString(strings.Join(k.Path, "/"))
	if k.Attr != "" {
		b.WriteString("@")
		b.WriteString(k.Attr)
	}
	return b.String()
}

func anchored(path, attr string) SearchKey {
	return SearchKey{Path: strings.Split(path, "/"), Attr: attr, Anchored: true}
}

const patientPath = "recordTarget/patientRole/patient"

var mapping = map[Field][]SearchKey{
	// family, given, prefix, suffix
	PatientName: {
		anchored(patientPath+"/name/family", ""),
		anchored(patientPath+"/name/given", ""),
		anchored(patientPath+"/name/prefix", ""),
		anchored(patientPath+"/name/suffix", ""),
	},
	PatientID:        {anchored("recordTarget/patientRole/id", "extension")},
	PatientBirthDate: {anchored(patientPath+"/birthTime", "value")},
	PatientSex:       {anchored(patientPath+"/administrativeGenderCode", "code")},

	ConceptCodeValue:    {anchored("code", "code")},
	ConceptCodingScheme: {anchored("code", "codeSystemName")},
	ConceptCodeMeaning:  {anchored("code", "displayName")},

	DocumentTitle: {anchored("title", "")},
	// root, extension
	HL7InstanceIdentifier: {anchored("id", "root"), anchored("id", "extension")},

	MediaTypes: {{Attr: "mediaType"}},
}

// Resolve maps a field to its search keys
func Resolve(f Field) ([]SearchKey, error) {
	keys, ok := mapping[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return keys, nil
}
