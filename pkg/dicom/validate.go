package dicom

import (
	"fmt"

	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
)

// AttributeType represents DICOM attribute type requirements
type AttributeType int

const (
	// Type1 - Required, must have value
	Type1 AttributeType = 1
	// Type1C - Conditionally required, must have value if present
	Type1C AttributeType = 2
	// Type2 - Required, may be empty
	Type2 AttributeType = 3
	// Type2C - Conditionally required, may be empty if present
	Type2C AttributeType = 4
	// Type3 - Optional
	Type3 AttributeType = 5
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Tag        tag.Tag
	Type       AttributeType
	Message    string
	IsCritical bool // Type 1 and 1C violations are critical
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Tag, e.typeName(), e.Message)
}

func (e ValidationError) typeName() string {
	switch e.Type {
	case Type1:
		return "Type 1"
	case Type1C:
		return "Type 1C"
	case Type2:
		return "Type 2"
	case Type2C:
		return "Type 2C"
	case Type3:
		return "Type 3"
	default:
		return "Unknown"
	}
}

// ValidationResult contains all validation errors for a dataset
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no critical errors
func (r ValidationResult) IsValid() bool {
	for _, err := range r.Errors {
		if err.IsCritical {
			return false
		}
	}
	return true
}

// HasErrors returns true if there are any errors
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any warnings
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// IODRequirement defines a required attribute for an IOD
type IODRequirement struct {
	Tag       tag.Tag
	Type      AttributeType
	Condition func(*Dataset) bool // For Type 1C/2C, returns true if attribute is required
}

// ValidateDataset validates a dataset against a set of requirements
func ValidateDataset(ds *Dataset, requirements []IODRequirement) ValidationResult {
	result := ValidationResult{}

	for _, req := range requirements {
		elem, exists := ds.FindElement(req.Tag.Group, req.Tag.Element)

		switch req.Type {
		case Type1:
			if !exists {
				result.Errors = append(result.Errors, ValidationError{
					Tag:        req.Tag,
					Type:       Type1,
					Message:    "Required attribute missing",
					IsCritical: true,
				})
			} else if isEmpty(elem) {
				result.Errors = append(result.Errors, ValidationError{
					Tag:        req.Tag,
					Type:       Type1,
					Message:    "Required attribute is empty",
					IsCritical: true,
				})
			}

		case Type1C:
			if req.Condition != nil && req.Condition(ds) {
				if !exists {
					result.Errors = append(result.Errors, ValidationError{
						Tag:        req.Tag,
						Type:       Type1C,
						Message:    "Conditionally required attribute missing",
						IsCritical: true,
					})
				} else if isEmpty(elem) {
					result.Errors = append(result.Errors, ValidationError{
						Tag:        req.Tag,
						Type:       Type1C,
						Message:    "Conditionally required attribute is empty",
						IsCritical: true,
					})
				}
			}

		case Type2:
			if !exists {
				result.Warnings = append(result.Warnings, ValidationError{
					Tag:        req.Tag,
					Type:       Type2,
					Message:    "Required attribute missing (may be empty)",
					IsCritical: false,
				})
			}

		case Type2C:
			if req.Condition != nil && req.Condition(ds) && !exists {
				result.Warnings = append(result.Warnings, ValidationError{
					Tag:        req.Tag,
					Type:       Type2C,
					Message:    "Conditionally required attribute missing (may be empty)",
					IsCritical: false,
				})
			}

		case Type3:
			// Optional - no validation needed
		}
	}

	return result
}

// isEmpty checks if an element has no value
func isEmpty(elem *Element) bool {
	if elem == nil {
		return true
	}
	if elem.Value == nil {
		return true
	}
	switch v := elem.Value.(type) {
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case []uint16:
		return len(v) == 0
	case []*Dataset:
		return len(v) == 0
	default:
		return false
	}
}

// Encapsulated document IOD requirements

// PatientModuleRequirements defines required attributes for Patient Module
var PatientModuleRequirements = []IODRequirement{
	{Tag: tag.PatientName, Type: Type2},
	{Tag: tag.PatientID, Type: Type2},
	{Tag: tag.PatientBirthDate, Type: Type2},
	{Tag: tag.PatientSex, Type: Type2},
}

// GeneralStudyModuleRequirements defines required attributes for General Study Module
var GeneralStudyModuleRequirements = []IODRequirement{
	{Tag: tag.StudyInstanceUID, Type: Type1},
	{Tag: tag.StudyDate, Type: Type2},
	{Tag: tag.StudyTime, Type: Type2},
	{Tag: tag.ReferringPhysicianName, Type: Type2},
	{Tag: tag.StudyID, Type: Type2},
	{Tag: tag.AccessionNumber, Type: Type2},
}

// DocumentSeriesModuleRequirements defines required attributes for the Encapsulated Document Series Module
var DocumentSeriesModuleRequirements = []IODRequirement{
	{Tag: tag.Modality, Type: Type1},
	{Tag: tag.SeriesInstanceUID, Type: Type1},
	{Tag: tag.SeriesNumber, Type: Type1},
}

// EncapsulatedDocumentModuleRequirements defines required attributes for the Encapsulated Document Module
var EncapsulatedDocumentModuleRequirements = []IODRequirement{
	{Tag: tag.InstanceNumber, Type: Type1},
	{Tag: tag.ContentDate, Type: Type2},
	{Tag: tag.ContentTime, Type: Type2},
	{Tag: tag.AcquisitionDateTime, Type: Type2},
	{Tag: tag.DocumentTitle, Type: Type2},
	{Tag: tag.ConceptNameCodeSequence, Type: Type2},
	{Tag: tag.MIMETypeOfEncapsulatedDocument, Type: Type1},
	{Tag: tag.EncapsulatedDocument, Type: Type1},
	{Tag: tag.EncapsulatedDocumentLength, Type: Type1},
	{Tag: tag.BurnedInAnnotation, Type: Type1C, Condition: hasMIMEType("application/pdf")},
}

// SOPCommonModuleRequirements defines required attributes for SOP Common Module
var SOPCommonModuleRequirements = []IODRequirement{
	{Tag: tag.SOPClassUID, Type: Type1},
	{Tag: tag.SOPInstanceUID, Type: Type1},
}

// Model3DRequirements adds the frame of reference, enhanced equipment and
// manufacturing modules of the 3D model IODs
var Model3DRequirements = []IODRequirement{
	{Tag: tag.FrameOfReferenceUID, Type: Type1},
	{Tag: tag.PositionReferenceIndicator, Type: Type2},
	{Tag: tag.Manufacturer, Type: Type1},
	{Tag: tag.ManufacturerModelName, Type: Type1},
	{Tag: tag.DeviceSerialNumber, Type: Type1},
	{Tag: tag.SoftwareVersions, Type: Type1},
	{Tag: tag.MeasurementUnitsCodeSequence, Type: Type1},
}

// EncapsulatedDocumentRequirements combines all requirements for the document IODs
var EncapsulatedDocumentRequirements = concat(
	PatientModuleRequirements,
	GeneralStudyModuleRequirements,
	DocumentSeriesModuleRequirements,
	EncapsulatedDocumentModuleRequirements,
	SOPCommonModuleRequirements,
)

func hasMIMEType(mime string) func(*Dataset) bool {
	return func(ds *Dataset) bool {
		return ds.GetString(tag.MIMETypeOfEncapsulatedDocument) == mime
	}
}

func concat(lists ...[]IODRequirement) []IODRequirement {
	var out []IODRequirement
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// ValidateEncapsulatedDocument validates an encapsulated document dataset,
// including the 3D model modules when model3D is set
func ValidateEncapsulatedDocument(ds *Dataset, model3D bool) ValidationResult {
	if model3D {
		return ValidateDataset(ds, concat(EncapsulatedDocumentRequirements, Model3DRequirements))
	}
	return ValidateDataset(ds, EncapsulatedDocumentRequirements)
}
