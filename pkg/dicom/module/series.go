package module

import (
	"strconv"

	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
)

// DocumentSeriesModule represents the Encapsulated Document Series Module
type DocumentSeriesModule struct {
	Modality          string
	SeriesInstanceUID string
	SeriesNumber      int
	SeriesDate        Date
	SeriesTime        Time
	SeriesDescription string
}

func (m *DocumentSeriesModule) ToTags() []IODElement {
	elements := []IODElement{
		{Tag: tag.Modality, Value: m.Modality},
		{Tag: tag.SeriesInstanceUID, Value: m.SeriesInstanceUID},
		{Tag: tag.SeriesNumber, Value: strconv.Itoa(m.SeriesNumber)},
	}
	if d := m.SeriesDate.String(); d != "" {
		elements = append(elements,
			IODElement{Tag: tag.SeriesDate, Value: d},
			IODElement{Tag: tag.SeriesTime, Value: m.SeriesTime.String()},
		)
	}
	if m.SeriesDescription != "" {
		elements = append(elements, IODElement{Tag: tag.SeriesDescription, Value: m.SeriesDescription})
	}
	return elements
}

func (m *DocumentSeriesModule) SetSeriesInstanceUID(uid string) {
	m.SeriesInstanceUID = uid
}
