// Package tag defines standard DICOM tags and the data dictionary used to
// resolve them by keyword.
package tag

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag represents a DICOM tag with Group and Element
type Tag struct {
	Group   uint16
	Element uint16
}

// New creates a new Tag
func New(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// Equals compares two tags
func (t Tag) Equals(other Tag) bool {
	return t.Group == other.Group && t.Element == other.Element
}

// Less orders tags by group then element, the order elements are encoded in.
func (t Tag) Less(other Tag) bool {
	if t.Group != other.Group {
		return t.Group < other.Group
	}
	return t.Element < other.Element
}

// IsPrivate returns true if this is a private tag (odd group number)
func (t Tag) IsPrivate() bool {
	return t.Group%2 == 1
}

// IsGroup0002 returns true if this tag is in the File Meta Information group
func (t Tag) IsGroup0002() bool {
	return t.Group == 0x0002
}

// IsGroupLength returns true for (gggg,0000) group length elements
func (t Tag) IsGroupLength() bool {
	return t.Element == 0x0000
}

// Parse reads "(gggg,eeee)" or "gggg,eeee" into a Tag.
func Parse(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	g, e, ok := strings.Cut(s, ",")
	if !ok || len(g) != 4 || len(e) != 4 {
		return Tag{}, fmt.Errorf("invalid tag %q", s)
	}
	group, err := strconv.ParseUint(g, 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag group %q: %w", g, err)
	}
	elem, err := strconv.ParseUint(e, 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag element %q: %w", e, err)
	}
	return Tag{Group: uint16(group), Element: uint16(elem)}, nil
}

// Standard DICOM Tags - File Meta Information (Group 0002)
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	FileMetaInformationVersion     = Tag{0x0002, 0x0001}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}
	ImplementationVersionName      = Tag{0x0002, 0x0013}
	SpecificCharacterSet           = Tag{0x0008, 0x0005}
)

// Patient Module (Group 0010)
var (
	PatientName      = Tag{0x0010, 0x0010}
	PatientID        = Tag{0x0010, 0x0020}
	PatientBirthDate = Tag{0x0010, 0x0030}
	PatientSex       = Tag{0x0010, 0x0040}
)

// General Study Module (Group 0008, 0020)
var (
	StudyDate              = Tag{0x0008, 0x0020}
	StudyTime              = Tag{0x0008, 0x0030}
	AccessionNumber        = Tag{0x0008, 0x0050}
	ReferringPhysicianName = Tag{0x0008, 0x0090}
	StudyDescription       = Tag{0x0008, 0x1030}
	StudyInstanceUID       = Tag{0x0020, 0x000D}
	StudyID                = Tag{0x0020, 0x0010}
)

// General / Encapsulated Document Series Module
var (
	Modality          = Tag{0x0008, 0x0060}
	SeriesInstanceUID = Tag{0x0020, 0x000E}
	SeriesNumber      = Tag{0x0020, 0x0011}
	InstanceNumber    = Tag{0x0020, 0x0013}
	SeriesDescription = Tag{0x0008, 0x103E}
	SeriesDate        = Tag{0x0008, 0x0021}
	SeriesTime        = Tag{0x0008, 0x0031}
)

// General and Enhanced General Equipment Modules
var (
	Manufacturer          = Tag{0x0008, 0x0070}
	InstitutionName       = Tag{0x0008, 0x0080}
	StationName           = Tag{0x0008, 0x1010}
	ManufacturerModelName = Tag{0x0008, 0x1090}
	DeviceSerialNumber    = Tag{0x0018, 0x1000}
	SoftwareVersions      = Tag{0x0018, 0x1020}
)

// SC Equipment Module
var (
	ConversionType = Tag{0x0008, 0x0064}
)

// SOP Common Module
var (
	SOPClassUID          = Tag{0x0008, 0x0016}
	SOPInstanceUID       = Tag{0x0008, 0x0018}
	InstanceCreationDate = Tag{0x0008, 0x0012}
	InstanceCreationTime = Tag{0x0008, 0x0013}
)

// Frame of Reference Module
var (
	FrameOfReferenceUID        = Tag{0x0020, 0x0052}
	PositionReferenceIndicator = Tag{0x0020, 0x1040}
)

// Code Sequence Macro
var (
	CodeValue              = Tag{0x0008, 0x0100}
	CodingSchemeDesignator = Tag{0x0008, 0x0102}
	CodingSchemeVersion    = Tag{0x0008, 0x0103}
	CodeMeaning            = Tag{0x0008, 0x0104}
)

// Encapsulated Document Module (Group 0042)
var (
	ContentDate                    = Tag{0x0008, 0x0023}
	ContentTime                    = Tag{0x0008, 0x0033}
	AcquisitionDateTime            = Tag{0x0008, 0x002A}
	BurnedInAnnotation             = Tag{0x0028, 0x0301}
	RecognizableVisualFeatures     = Tag{0x0028, 0x0302}
	ConceptNameCodeSequence        = Tag{0x0040, 0xA043}
	HL7InstanceIdentifier          = Tag{0x0040, 0xE001}
	DocumentTitle                  = Tag{0x0042, 0x0010}
	EncapsulatedDocument           = Tag{0x0042, 0x0011}
	MIMETypeOfEncapsulatedDocument = Tag{0x0042, 0x0012}
	SourceInstanceSequence         = Tag{0x0042, 0x0013}
	ListOfMIMETypes                = Tag{0x0042, 0x0014}
	EncapsulatedDocumentLength     = Tag{0x0042, 0x0015}
)

// Manufacturing 3D Model Module
var (
	MeasurementUnitsCodeSequence = Tag{0x0040, 0x08EA}
)

// Sequence delimiters and padding
var (
	Item                     = Tag{0xFFFE, 0xE000}
	ItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
	DataSetTrailingPadding   = Tag{0xFFFC, 0xFFFC}
)

// LookupName returns the dictionary keyword for the tag, or "" when unknown
func (t Tag) LookupName() string {
	if e, ok := Lookup(t); ok {
		return e.Keyword
	}
	return ""
}
