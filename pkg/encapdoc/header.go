package encapdoc

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jpfielding/encapdoc.go/pkg/cda"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/module"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
)

// conversion type of documents converted on a workstation
const conversionWorkstation = "WSD"

// BuildHeader assembles every module of the encapsulated document IOD for
// cfg.Kind, without the document bytes. It performs no I/O.
func BuildHeader(ctx context.Context, rec *Record, ids IdentifierSet, cfg Config, now time.Time) (*dicom.Dataset, error) {
	kind := cfg.Kind
	opts, err := cfg.Encoding.WriteOptions()
	if err != nil {
		return nil, err
	}

	patient := module.PatientModule{
		PatientName:      multiValue(rec.Get(FieldPatientName)),
		PatientID:        multiValue(rec.Get(FieldPatientID)),
		PatientBirthDate: multiValue(rec.Get(FieldPatientBirthDate)),
		PatientSex:       multiValue(rec.Get(FieldPatientSex)),
	}

	study := module.NewGeneralStudyModule(now)
	study.StudyInstanceUID = ids.StudyInstanceUID

	series := module.DocumentSeriesModule{
		Modality:     kind.Modality(),
		SeriesNumber: 1,
		SeriesDate:   module.NewDate(now),
		SeriesTime:   module.NewTime(now),
	}
	series.SetSeriesInstanceUID(ids.SeriesInstanceUID)

	doc := module.EncapsulatedDocumentModule{
		InstanceNumber:             ids.InstanceNumber,
		ContentDate:                module.NewDate(now),
		ContentTime:                module.NewTime(now),
		DocumentTitle:              multiValue(rec.Get(FieldDocumentTitle)),
		ConceptName:                conceptName(ctx, rec),
		HL7InstanceIdentifier:      rec.Get(FieldHL7InstanceIdentifier),
		MIMEType:                   kind.MIMEType(),
		RecognizableVisualFeatures: strings.ToUpper(cfg.RecognizableVisualFeatures),
	}
	if kind == KindPDF {
		doc.BurnedInAnnotation = strings.ToUpper(cfg.BurnedInAnnotation)
		if doc.BurnedInAnnotation == "" {
			doc.BurnedInAnnotation = "YES"
		}
	}
	if kind == KindCDA {
		doc.ListOfMIMETypes = rec.MediaTypes
	}

	sop := module.NewSOPCommonModule(now)
	sop.SOPClassUID = kind.SOPClassUID()
	sop.SOPInstanceUID = ids.SOPInstanceUID

	equipment := module.GeneralEquipmentModule{
		Manufacturer:      cfg.Manufacturer,
		ManufacturerModel: cfg.ManufacturerModelName,
		DeviceSerial:      cfg.DeviceSerialNumber,
		SoftwareVersions:  cfg.SoftwareVersions,
	}

	modules := []module.IODModule{&patient, &study, &series, &doc, &sop}
	if kind.Is3D() {
		modules = append(modules,
			&module.EnhancedGeneralEquipmentModule{GeneralEquipmentModule: equipment},
			&module.FrameOfReferenceModule{FrameOfReferenceUID: ids.FrameOfReferenceUID},
			&module.Manufacturing3DModelModule{MeasurementUnits: module.Millimetre},
		)
	} else {
		modules = append(modules,
			&equipment,
			&module.SCEquipmentModule{ConversionType: conversionWorkstation},
		)
	}

	options := []dicom.Option{
		dicom.WithFileMeta(kind.SOPClassUID(), ids.SOPInstanceUID, string(opts.TransferSyntax)),
	}
	for _, m := range modules {
		options = append(options, dicom.WithModule(m.ToTags()))
	}
	ds, err := dicom.NewDataset(options...)
	if err != nil {
		return nil, mark(err, ErrUnknownAttribute, "building %s header", kind)
	}
	if !isASCII(ds) {
		ds.Set(tag.SpecificCharacterSet, "", module.CharsetUTF8)
	}
	return ds, nil
}

// multiValue turns the internal separator into the DICOM value delimiter
func multiValue(v string) string {
	return strings.ReplaceAll(v, cda.Separator, `\`)
}

// conceptName is written only when code, scheme and meaning are all known;
// a partial code would break the type 1 attributes of the code item.
func conceptName(ctx context.Context, rec *Record) module.CodeItem {
	code := module.CodeItem{
		CodeValue:              rec.Get(FieldConceptCodeValue),
		CodingSchemeDesignator: rec.Get(FieldConceptCodingScheme),
		CodeMeaning:            rec.Get(FieldConceptCodeMeaning),
	}
	if code.IsZero() {
		return code
	}
	if code.CodeValue == "" || code.CodingSchemeDesignator == "" || code.CodeMeaning == "" {
		slog.WarnContext(ctx, "incomplete concept name code, leaving ConceptNameCodeSequence empty",
			"code", code.CodeValue, "scheme", code.CodingSchemeDesignator, "meaning", code.CodeMeaning)
		return module.CodeItem{}
	}
	return code
}

// isASCII reports whether every string value, nested items included, is 7 bit
func isASCII(ds *dicom.Dataset) bool {
	for _, elem := range ds.Elements {
		switch v := elem.Value.(type) {
		case string:
			if !asciiString(v) {
				return false
			}
		case []string:
			for _, s := range v {
				if !asciiString(s) {
					return false
				}
			}
		case []*dicom.Dataset:
			for _, item := range v {
				if !isASCII(item) {
					return false
				}
			}
		}
	}
	return true
}

func asciiString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
