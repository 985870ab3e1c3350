package module

import "github.com/jpfielding/encapdoc.go/pkg/dicom/tag"

// PatientModule represents the Patient Module. All four attributes are
// type 2 and written even when empty.
type PatientModule struct {
	PatientName      string // PN, already in Family^Given form
	PatientID        string
	PatientBirthDate string
	PatientSex       string // M, F, O
}

func (m *PatientModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.PatientName, Value: m.PatientName},
		{Tag: tag.PatientID, Value: m.PatientID},
		{Tag: tag.PatientBirthDate, Value: m.PatientBirthDate},
		{Tag: tag.PatientSex, Value: m.PatientSex},
	}
}

// SetPatientName sets the patient's name from its components
func (m *PatientModule) SetPatientName(first, last, middle, prefix, suffix string) {
	m.PatientName = PersonName{
		GivenName:  first,
		FamilyName: last,
		MiddleName: middle,
		Prefix:     prefix,
		Suffix:     suffix,
	}.String()
}
