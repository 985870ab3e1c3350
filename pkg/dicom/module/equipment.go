package module

import "github.com/jpfielding/encapdoc.go/pkg/dicom/tag"

// Unknown fills type 1 attributes nobody supplied a value for
const Unknown = "UNKNOWN"

// GeneralEquipmentModule represents the General Equipment Module
type GeneralEquipmentModule struct {
	Manufacturer      string
	InstitutionName   string
	StationName       string
	ManufacturerModel string
	DeviceSerial      string
	SoftwareVersions  string
}

func (m *GeneralEquipmentModule) ToTags() []IODElement {
	elements := []IODElement{
		{Tag: tag.Manufacturer, Value: m.Manufacturer},
	}
	optional := []IODElement{
		{Tag: tag.InstitutionName, Value: m.InstitutionName},
		{Tag: tag.StationName, Value: m.StationName},
		{Tag: tag.ManufacturerModelName, Value: m.ManufacturerModel},
		{Tag: tag.DeviceSerialNumber, Value: m.DeviceSerial},
		{Tag: tag.SoftwareVersions, Value: m.SoftwareVersions},
	}
	for _, el := range optional {
		if el.Value != "" {
			elements = append(elements, el)
		}
	}
	return elements
}

// EnhancedGeneralEquipmentModule makes the model, serial and software
// attributes type 1; empty values become Unknown.
type EnhancedGeneralEquipmentModule struct {
	GeneralEquipmentModule
}

func (m *EnhancedGeneralEquipmentModule) ToTags() []IODElement {
	eq := m.GeneralEquipmentModule
	for _, s := range []*string{&eq.Manufacturer, &eq.ManufacturerModel, &eq.DeviceSerial, &eq.SoftwareVersions} {
		if *s == "" {
			*s = Unknown
		}
	}
	return eq.ToTags()
}

// SCEquipmentModule represents the SC Equipment Module
type SCEquipmentModule struct {
	ConversionType string // WSD for workstation conversions
}

func (m *SCEquipmentModule) ToTags() []IODElement {
	return []IODElement{
		{Tag: tag.ConversionType, Value: m.ConversionType},
	}
}
