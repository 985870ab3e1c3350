package tag

import (
	"errors"
	"fmt"
	"strings"

	dcmtag "github.com/suyashkumar/dicom/pkg/tag"
)

// ErrUnknown is returned when a keyword or tag is not in the dictionary.
var ErrUnknown = errors.New("unknown attribute")

// Entry is a single data dictionary entry.
type Entry struct {
	Tag     Tag
	Keyword string
	VR      string
}

// local entries take precedence over the full dictionary; they cover every
// attribute the encapsulated document IODs write so the hot path never
// reaches the generated tables.
var local = []Entry{
	{FileMetaInformationGroupLength, "FileMetaInformationGroupLength", "UL"},
	{FileMetaInformationVersion, "FileMetaInformationVersion", "OB"},
	{MediaStorageSOPClassUID, "MediaStorageSOPClassUID", "UI"},
	{MediaStorageSOPInstanceUID, "MediaStorageSOPInstanceUID", "UI"},
	{TransferSyntaxUID, "TransferSyntaxUID", "UI"},
	{ImplementationClassUID, "ImplementationClassUID", "UI"},
	{ImplementationVersionName, "ImplementationVersionName", "SH"},
	{SpecificCharacterSet, "SpecificCharacterSet", "CS"},

	{PatientName, "PatientName", "PN"},
	{PatientID, "PatientID", "LO"},
	{PatientBirthDate, "PatientBirthDate", "DA"},
	{PatientSex, "PatientSex", "CS"},

	{StudyDate, "StudyDate", "DA"},
	{StudyTime, "StudyTime", "TM"},
	{AccessionNumber, "AccessionNumber", "SH"},
	{ReferringPhysicianName, "ReferringPhysicianName", "PN"},
	{StudyDescription, "StudyDescription", "LO"},
	{StudyInstanceUID, "StudyInstanceUID", "UI"},
	{StudyID, "StudyID", "SH"},

	{Modality, "Modality", "CS"},
	{SeriesInstanceUID, "SeriesInstanceUID", "UI"},
	{SeriesNumber, "SeriesNumber", "IS"},
	{InstanceNumber, "InstanceNumber", "IS"},
	{SeriesDescription, "SeriesDescription", "LO"},
	{SeriesDate, "SeriesDate", "DA"},
	{SeriesTime, "SeriesTime", "TM"},

	{Manufacturer, "Manufacturer", "LO"},
	{InstitutionName, "InstitutionName", "LO"},
	{StationName, "StationName", "SH"},
	{ManufacturerModelName, "ManufacturerModelName", "LO"},
	{DeviceSerialNumber, "DeviceSerialNumber", "LO"},
	{SoftwareVersions, "SoftwareVersions", "LO"},
	{ConversionType, "ConversionType", "CS"},

	{SOPClassUID, "SOPClassUID", "UI"},
	{SOPInstanceUID, "SOPInstanceUID", "UI"},
	{InstanceCreationDate, "InstanceCreationDate", "DA"},
	{InstanceCreationTime, "InstanceCreationTime", "TM"},

	{FrameOfReferenceUID, "FrameOfReferenceUID", "UI"},
	{PositionReferenceIndicator, "PositionReferenceIndicator", "LO"},

	{CodeValue, "CodeValue", "SH"},
	{CodingSchemeDesignator, "CodingSchemeDesignator", "SH"},
	{CodingSchemeVersion, "CodingSchemeVersion", "SH"},
	{CodeMeaning, "CodeMeaning", "LO"},

	{ContentDate, "ContentDate", "DA"},
	{ContentTime, "ContentTime", "TM"},
	{AcquisitionDateTime, "AcquisitionDateTime", "DT"},
	{BurnedInAnnotation, "BurnedInAnnotation", "CS"},
	{RecognizableVisualFeatures, "RecognizableVisualFeatures", "CS"},
	{ConceptNameCodeSequence, "ConceptNameCodeSequence", "SQ"},
	{HL7InstanceIdentifier, "HL7InstanceIdentifier", "ST"},
	{DocumentTitle, "DocumentTitle", "ST"},
	{EncapsulatedDocument, "EncapsulatedDocument", "OB"},
	{MIMETypeOfEncapsulatedDocument, "MIMETypeOfEncapsulatedDocument", "LO"},
	{SourceInstanceSequence, "SourceInstanceSequence", "SQ"},
	{ListOfMIMETypes, "ListOfMIMETypes", "LO"},
	{EncapsulatedDocumentLength, "EncapsulatedDocumentLength", "UL"},
	{MeasurementUnitsCodeSequence, "MeasurementUnitsCodeSequence", "SQ"},

	{DataSetTrailingPadding, "DataSetTrailingPadding", "OB"},
}

var (
	byTag     = make(map[Tag]Entry, len(local))
	byKeyword = make(map[string]Entry, len(local))
)

func init() {
	for _, e := range local {
		byTag[e.Tag] = e
		byKeyword[strings.ToLower(e.Keyword)] = e
	}
}

// Lookup returns the dictionary entry for a tag. Group length elements are
// always UL; other tags fall back to the full standard dictionary.
func Lookup(t Tag) (Entry, bool) {
	if e, ok := byTag[t]; ok {
		return e, true
	}
	if t.IsGroupLength() {
		return Entry{Tag: t, Keyword: fmt.Sprintf("GroupLength%04X", t.Group), VR: "UL"}, true
	}
	info, err := dcmtag.Find(dcmtag.Tag{Group: t.Group, Element: t.Element})
	if err != nil || len(info.VRs) == 0 {
		return Entry{}, false
	}
	return Entry{Tag: t, Keyword: info.Name, VR: info.VRs[0]}, true
}

// LookupKeyword resolves a dictionary keyword such as "PatientName".
// Matching is case-insensitive for the local entries.
func LookupKeyword(keyword string) (Entry, error) {
	if e, ok := byKeyword[strings.ToLower(keyword)]; ok {
		return e, nil
	}
	info, err := dcmtag.FindByName(keyword)
	if err != nil || len(info.VRs) == 0 {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknown, keyword)
	}
	return Entry{
		Tag:     Tag{Group: info.Tag.Group, Element: info.Tag.Element},
		Keyword: info.Name,
		VR:      info.VRs[0],
	}, nil
}

// Resolve accepts a keyword or a "(gggg,eeee)" / "gggg,eeee" tag string.
// Tags outside the dictionary resolve with VR UN (private tags included).
func Resolve(s string) (Entry, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		t, err := Parse(s)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %v", ErrUnknown, err)
		}
		if e, ok := Lookup(t); ok {
			return e, nil
		}
		return Entry{Tag: t, VR: "UN"}, nil
	}
	return LookupKeyword(s)
}

// VROf returns the dictionary VR for a tag, or UN when unknown.
func VROf(t Tag) string {
	if e, ok := Lookup(t); ok {
		return e.VR
	}
	return "UN"
}
