package module

import "github.com/jpfielding/encapdoc.go/pkg/dicom/tag"

// Millimetre is the UCUM code for the units of STL, OBJ and MTL models
var Millimetre = CodeItem{CodeValue: "mm", CodingSchemeDesignator: "UCUM", CodeMeaning: "mm"}

// Manufacturing3DModelModule represents the Manufacturing 3D Model Module
type Manufacturing3DModelModule struct {
	MeasurementUnits CodeItem
}

func (m *Manufacturing3DModelModule) ToTags() []IODElement {
	units := m.MeasurementUnits
	if units.IsZero() {
		units = Millimetre
	}
	return []IODElement{
		{Tag: tag.MeasurementUnitsCodeSequence, Value: [][]IODElement{units.ToTags()}},
	}
}
