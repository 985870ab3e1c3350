package encapdoc

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/transfer"
)

// Config is everything one conversion run needs. It is passed by value and
// never mutated by the engine.
type Config struct {
	Kind       DocumentKind
	InputPath  string
	OutputPath string

	PatientName      string
	PatientID        string
	PatientBirthDate string
	PatientSex       string

	ConceptCodeValue    string
	ConceptCodingScheme string
	ConceptCodeMeaning  string
	DocumentTitle       string

	// SeriesFile is an existing DICOM file whose study and series are reused
	SeriesFile            string
	SeriesContextOptional bool
	StudyInstanceUID      string
	SeriesInstanceUID     string
	// InstanceNumber 0 means not supplied
	InstanceNumber    int
	IncrementInstance bool

	// BurnedInAnnotation is YES or NO, PDF only. Empty means YES.
	BurnedInAnnotation         string
	RecognizableVisualFeatures string

	Manufacturer          string
	ManufacturerModelName string
	DeviceSerialNumber    string
	SoftwareVersions      string

	// PreferConfigured turns field conflicts into warnings keeping the first value
	PreferConfigured bool

	Encoding  EncodingConfig
	Overrides []string

	// MaxPayloadBytes lowers MaxPayloadLength when positive
	MaxPayloadBytes int64
	// MaxMarkupDepth bounds CDA nesting, cda.DefaultMaxDepth when 0
	MaxMarkupDepth int
}

// EncodingConfig holds the textual encoding choices
type EncodingConfig struct {
	TransferSyntax string // explicit-le, implicit-le, explicit-be, deflated
	GroupLength    string // none, recalc
	SequenceLength string // undefined, explicit
	FilePadding    int
	ItemPadding    int
	WriteMode      string // file, dataset
}

// WriteOptions converts the textual choices for the codec
func (c EncodingConfig) WriteOptions() (dicom.WriteOptions, error) {
	var opts dicom.WriteOptions
	ts, err := transfer.FromName(c.TransferSyntax)
	if err != nil {
		return opts, errors.WithHint(errors.Mark(err, ErrUsage),
			"transfer syntax is one of explicit-le, implicit-le, explicit-be, deflated")
	}
	opts.TransferSyntax = ts

	switch strings.ToLower(c.GroupLength) {
	case "", "none", "remove":
		opts.GroupLength = dicom.GroupLengthNone
	case "recalc", "create":
		opts.GroupLength = dicom.GroupLengthRecalc
	default:
		return opts, errors.Wrapf(ErrUsage, "unknown group length mode %q", c.GroupLength)
	}

	switch strings.ToLower(c.SequenceLength) {
	case "", "undefined":
		opts.SequenceLength = dicom.SequenceLengthUndefined
	case "explicit":
		opts.SequenceLength = dicom.SequenceLengthExplicit
	default:
		return opts, errors.Wrapf(ErrUsage, "unknown sequence length mode %q", c.SequenceLength)
	}

	switch strings.ToLower(c.WriteMode) {
	case "", "file":
	case "dataset":
		opts.DatasetOnly = true
	default:
		return opts, errors.Wrapf(ErrUsage, "unknown write mode %q", c.WriteMode)
	}

	opts.FilePadding = c.FilePadding
	opts.ItemPadding = c.ItemPadding
	if err := opts.Validate(); err != nil {
		return opts, errors.Mark(err, ErrUsage)
	}
	return opts, nil
}

// Validate checks paths and enumerations before any work starts
func (c Config) Validate() error {
	if _, ok := kindTable[c.Kind]; !ok {
		return errors.Wrapf(ErrUsage, "unknown document kind %q", c.Kind)
	}
	if c.InputPath == "" {
		return errors.Wrap(ErrUsage, "input path is required")
	}
	if c.OutputPath == "" {
		return errors.Wrap(ErrUsage, "output path is required")
	}
	if c.InstanceNumber < 0 {
		return errors.Wrapf(ErrUsage, "instance number %d is negative", c.InstanceNumber)
	}
	if c.IncrementInstance && c.SeriesFile == "" {
		return errors.WithHint(errors.Wrap(ErrUsage, "instance increment needs a series file"),
			"pass --series-from with an earlier output of the same series")
	}
	for _, v := range []struct{ name, value string }{
		{"annotation", c.BurnedInAnnotation},
		{"recognizable visual features", c.RecognizableVisualFeatures},
	} {
		switch strings.ToUpper(v.value) {
		case "", "YES", "NO":
		default:
			return errors.Wrapf(ErrUsage, "%s must be YES or NO, got %q", v.name, v.value)
		}
	}
	if c.MaxPayloadBytes < 0 || c.MaxMarkupDepth < 0 {
		return errors.Wrap(ErrUsage, "limits must not be negative")
	}
	if _, err := c.Encoding.WriteOptions(); err != nil {
		return err
	}
	return nil
}
