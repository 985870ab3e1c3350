package module

import (
	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
)

// FrameOfReferenceModule represents the Frame of Reference Module
// Per DICOM Part 3 Section C.7.4.1
type FrameOfReferenceModule struct {
	// Required (Type 1)
	FrameOfReferenceUID string // Unique identifier for spatial frame

	// Required, may be empty (Type 2)
	PositionReferenceIndicator string
}

// ToTags converts the module to DICOM tag elements
func (m *FrameOfReferenceModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.FrameOfReferenceUID, Value: m.FrameOfReferenceUID},
		{Tag: tag.PositionReferenceIndicator, Value: m.PositionReferenceIndicator},
	}
}
