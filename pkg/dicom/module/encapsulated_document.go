package module

import (
	"strconv"

	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
)

// EncapsulatedDocumentModule represents the Encapsulated Document Module
// Per DICOM Part 3 Section C.24.2, without the document bytes themselves.
type EncapsulatedDocumentModule struct {
	InstanceNumber             int
	ContentDate                Date
	ContentTime                Time
	AcquisitionDateTime        string
	BurnedInAnnotation         string // YES or NO, PDF only
	RecognizableVisualFeatures string // YES or NO
	DocumentTitle              string
	ConceptName                CodeItem
	HL7InstanceIdentifier      string
	MIMEType                   string
	ListOfMIMETypes            []string
}

// ToTags converts the module to DICOM tag elements
func (m *EncapsulatedDocumentModule) ToTags() []IODElement {
	concept := [][]IODElement{}
	if !m.ConceptName.IsZero() {
		concept = append(concept, m.ConceptName.ToTags())
	}
	elements := []IODElement{
		{Tag: tag.InstanceNumber, Value: strconv.Itoa(m.InstanceNumber)},
		{Tag: tag.ContentDate, Value: m.ContentDate.String()},
		{Tag: tag.ContentTime, Value: m.ContentTime.String()},
		{Tag: tag.AcquisitionDateTime, Value: m.AcquisitionDateTime},
		{Tag: tag.DocumentTitle, Value: m.DocumentTitle},
		{Tag: tag.ConceptNameCodeSequence, Value: concept},
		{Tag: tag.MIMETypeOfEncapsulatedDocument, Value: m.MIMEType},
	}
	if m.BurnedInAnnotation != "" {
		elements = append(elements, IODElement{Tag: tag.BurnedInAnnotation, Value: m.BurnedInAnnotation})
	}
	if m.RecognizableVisualFeatures != "" {
		elements = append(elements, IODElement{Tag: tag.RecognizableVisualFeatures, Value: m.RecognizableVisualFeatures})
	}
	if m.HL7InstanceIdentifier != "" {
		elements = append(elements, IODElement{Tag: tag.HL7InstanceIdentifier, Value: m.HL7InstanceIdentifier})
	}
	if len(m.ListOfMIMETypes) > 0 {
		elements = append(elements, IODElement{Tag: tag.ListOfMIMETypes, Value: m.ListOfMIMETypes})
	}
	return elements
}
