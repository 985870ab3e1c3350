package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/encapdoc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var encapDescriptions = map[encapdoc.DocumentKind]string{
	encapdoc.KindCDA: "HL7 CDA document to DICOM, carrying patient and concept values from the markup",
	encapdoc.KindPDF: "PDF document to DICOM",
	encapdoc.KindSTL: "STL 3D model to DICOM",
	encapdoc.KindOBJ: "Wavefront OBJ 3D model to DICOM",
	encapdoc.KindMTL: "Wavefront MTL material file to DICOM",
}

// NewEncapCmd converts one document of the given kind: <kind>2dcm in out
func NewEncapCmd(ctx context.Context, kind encapdoc.DocumentKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(kind) + "2dcm <input> <output>",
		Short: encapDescriptions[kind],
		Long:  encapDescriptions[kind] + ". Values come from flags, then ENCAPDOC_* environment variables, then the --config file.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.WithHint(
					errors.Wrapf(encapdoc.ErrUsage, "%s takes an input and an output path, got %d arguments", cmd.Name(), len(args)),
					"encapdoc "+cmd.Use)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			cfg := configFromViper(v, kind, args[0], args[1])
			// overrides often contain commas, take them straight from the flag
			if cmd.Flags().Changed("key") {
				cfg.Overrides, _ = cmd.Flags().GetStringArray("key")
			}
			e, err := encapdoc.New(cfg)
			if err != nil {
				return err
			}
			res, err := e.Run(cmd.Context())
			if err != nil {
				return err
			}
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s instance %d (%d bytes)\n",
					res.Path, res.Identifiers.SOPInstanceUID, res.Identifiers.InstanceNumber, res.BytesWritten)
			}
			return nil
		},
	}
	encapFlags(cmd.Flags(), kind)
	return cmd
}

func encapFlags(f *pflag.FlagSet, kind encapdoc.DocumentKind) {
	f.String("patient-name", "", "patient's name, Family^Given^Middle^Prefix^Suffix")
	f.String("patient-id", "", "patient ID")
	f.String("patient-birthdate", "", "patient's birth date, YYYYMMDD")
	f.String("patient-sex", "", "patient's sex (M, F, O)")
	f.String("title", "", "document title")
	f.String("concept-code", "", "concept name code value")
	f.String("concept-scheme", "", "concept name coding scheme designator")
	f.String("concept-meaning", "", "concept name code meaning")

	f.String("series-from", "", "reuse study and series of this DICOM file")
	f.Bool("series-optional", false, "continue with new UIDs when --series-from cannot be read")
	f.String("study-uid", "", "study instance UID")
	f.String("series-uid", "", "series instance UID")
	f.Int("instance-number", 0, "instance number, 1 when not given")
	f.Bool("instance-inc", false, "use the instance number of --series-from plus one")

	if kind == encapdoc.KindPDF {
		f.String("annotation", "YES", "burned in annotation (YES, NO)")
	}
	f.String("visual-features", "", "recognizable visual features (YES, NO)")
	f.String("manufacturer", "", "manufacturer")
	f.String("model-name", "", "manufacturer's model name")
	f.String("serial-number", "", "device serial number")
	f.String("software-versions", "", "software versions")

	f.Bool("prefer-configured", false, "keep configured values when the document disagrees, with a warning")
	f.StringArrayP("key", "k", nil, "override attribute after building: path[=value], repeatable")

	f.String("transfer-syntax", "explicit-le", "explicit-le, implicit-le, explicit-be, deflated")
	f.String("group-length", "none", "group length elements: none, recalc")
	f.String("sequence-length", "undefined", "sequence and item lengths: undefined, explicit")
	f.Int("file-pad", 0, "pad the file to a multiple of this many bytes (even)")
	f.Int("item-pad", 0, "pad sequence items to a multiple of this many bytes (even)")
	f.String("write-mode", "file", "file (preamble and file meta) or dataset (bare dataset)")

	f.Int64("max-payload", 0, "largest document in bytes, 0 for the format limit")
	f.Int("max-depth", 0, "deepest CDA element nesting, 0 for the default")
	f.BoolP("quiet", "q", false, "do not print the written file")
}

// newViper layers flags over ENCAPDOC_* environment variables over --config
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("ENCAPDOC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.NewAssertionErrorWithWrappedErrf(err, "binding flags")
	}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithHint(
				errors.Wrapf(errors.Mark(err, encapdoc.ErrUsage), "reading config %s", path),
				"config files are YAML or TOML with flag names as keys")
		}
	}
	return v, nil
}

func configFromViper(v *viper.Viper, kind encapdoc.DocumentKind, in, out string) encapdoc.Config {
	return encapdoc.Config{
		Kind:       kind,
		InputPath:  in,
		OutputPath: out,

		PatientName:      v.GetString("patient-name"),
		PatientID:        v.GetString("patient-id"),
		PatientBirthDate: v.GetString("patient-birthdate"),
		PatientSex:       v.GetString("patient-sex"),

		ConceptCodeValue:    v.GetString("concept-code"),
		ConceptCodingScheme: v.GetString("concept-scheme"),
		ConceptCodeMeaning:  v.GetString("concept-meaning"),
		DocumentTitle:       v.GetString("title"),

		SeriesFile:            v.GetString("series-from"),
		SeriesContextOptional: v.GetBool("series-optional"),
		StudyInstanceUID:      v.GetString("study-uid"),
		SeriesInstanceUID:     v.GetString("series-uid"),
		InstanceNumber:        v.GetInt("instance-number"),
		IncrementInstance:     v.GetBool("instance-inc"),

		BurnedInAnnotation:         v.GetString("annotation"),
		RecognizableVisualFeatures: v.GetString("visual-features"),

		Manufacturer:          v.GetString("manufacturer"),
		ManufacturerModelName: v.GetString("model-name"),
		DeviceSerialNumber:    v.GetString("serial-number"),
		SoftwareVersions:      v.GetString("software-versions"),

		PreferConfigured: v.GetBool("prefer-configured"),
		Encoding: encapdoc.EncodingConfig{
			TransferSyntax: v.GetString("transfer-syntax"),
			GroupLength:    v.GetString("group-length"),
			SequenceLength: v.GetString("sequence-length"),
			FilePadding:    v.GetInt("file-pad"),
			ItemPadding:    v.GetInt("item-pad"),
			WriteMode:      v.GetString("write-mode"),
		},
		Overrides:       v.GetStringSlice("key"),
		MaxPayloadBytes: v.GetInt64("max-payload"),
		MaxMarkupDepth:  v.GetInt("max-depth"),
	}
}
