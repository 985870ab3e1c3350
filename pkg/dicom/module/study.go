package module

import (
	"time"

	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
)

// GeneralStudyModule represents the General Study Module
type GeneralStudyModule struct {
	StudyInstanceUID       string
	StudyDate              Date
	StudyTime              Time
	ReferringPhysicianName string
	StudyID                string
	AccessionNumber        string
	StudyDescription       string
}

func NewGeneralStudyModule(now time.Time) GeneralStudyModule {
	return GeneralStudyModule{
		StudyDate: NewDate(now),
		StudyTime: NewTime(now),
	}
}

func (m *GeneralStudyModule) ToTags() []IODElement {
	elements := []IODElement{
		{Tag: tag.StudyInstanceUID, Value: m.StudyInstanceUID},
		{Tag: tag.StudyDate, Value: m.StudyDate.String()},
		{Tag: tag.StudyTime, Value: m.StudyTime.String()},
		{Tag: tag.ReferringPhysicianName, Value: m.ReferringPhysicianName},
		{Tag: tag.StudyID, Value: m.StudyID},
		{Tag: tag.AccessionNumber, Value: m.AccessionNumber},
	}
	if m.StudyDescription != "" {
		elements = append(elements, IODElement{Tag: tag.StudyDescription, Value: m.StudyDescription})
	}
	return elements
}
