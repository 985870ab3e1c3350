package module

import (
	"time"

	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
)

// Character sets written to SpecificCharacterSet
const (
	CharsetLatin1 = "ISO_IR 100"
	CharsetUTF8   = "ISO_IR 192"
)

// SOPCommonModule represents the SOP Common Module
type SOPCommonModule struct {
	SOPClassUID          string
	SOPInstanceUID       string
	SpecificCharacterSet string
	InstanceCreationDate Date
	InstanceCreationTime Time
}

func NewSOPCommonModule(now time.Time) SOPCommonModule {
	return SOPCommonModule{
		SpecificCharacterSet: CharsetLatin1,
		InstanceCreationDate: NewDate(now),
		InstanceCreationTime: NewTime(now),
	}
}

func (m *SOPCommonModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.SOPClassUID, Value: m.SOPClassUID},
		{Tag: tag.SOPInstanceUID, Value: m.SOPInstanceUID},
		{Tag: tag.SpecificCharacterSet, Value: m.SpecificCharacterSet},
		{Tag: tag.InstanceCreationDate, Value: m.InstanceCreationDate.String()},
		{Tag: tag.InstanceCreationTime, Value: m.InstanceCreationTime.String()},
	}
}
