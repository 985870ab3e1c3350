package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
	"github.com/jpfielding/encapdoc.go/pkg/encapdoc"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewDumpCmd prints a DICOM file, optionally extracting its encapsulated document
func NewDumpCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "print a DICOM file",
		Long:  "print a DICOM file as text, JSON or YAML, or write its encapsulated document out with --extract",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader
			uri, _ := cmd.Flags().GetString("uri")
			uri = strings.TrimPrefix(uri, "file://")
			switch {
			case uri == "":
				return errors.WithHint(errors.Wrap(encapdoc.ErrUsage, "no input"), "pass --uri <path>, - for stdin")
			case uri == "-":
				in = os.Stdin
			case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
				if err != nil {
					return errors.Mark(err, encapdoc.ErrUsage)
				}
				resp, err := http.DefaultClient.Do(req)
				if err != nil {
					return errors.Wrapf(errors.Mark(err, encapdoc.ErrIOFailure), "fetching %s", uri)
				}
				defer resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					return errors.Wrapf(encapdoc.ErrIOFailure, "fetching %s: %s", uri, resp.Status)
				}
				in = resp.Body
			default:
				f, err := os.Open(uri)
				if err != nil {
					return errors.Wrapf(errors.Mark(err, encapdoc.ErrIOFailure), "opening %s", uri)
				}
				defer f.Close()
				in = f
			}
			dataset, err := dicom.Parse(in)
			if err != nil {
				return errors.Wrapf(errors.Mark(err, encapdoc.ErrMalformedInput), "parsing %s", uri)
			}

			if path, _ := cmd.Flags().GetString("extract"); path != "" {
				return extractDocument(dataset, path)
			}

			out := cmd.OutOrStdout()
			switch format, _ := cmd.Flags().GetString("format"); format {
			case "text":
				fmt.Fprintln(out, dataset)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(dataset); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				j, err := json.Marshal(dataset)
				if err != nil {
					return err
				}
				out.Write(append(j, '\n'))
			default:
				return errors.Wrapf(encapdoc.ErrUsage, "unknown format %q", format)
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "DICOM file path, http(s) URL or - for stdin")
	pf.StringP("format", "f", "json", "output format (text|json|yaml)")
	pf.StringP("extract", "x", "", "write the encapsulated document, without padding, to this path")
	return cmd
}

// extractDocument writes EncapsulatedDocument trimmed to EncapsulatedDocumentLength
func extractDocument(ds *dicom.Dataset, path string) error {
	elem, ok := ds.Get(tag.EncapsulatedDocument)
	if !ok {
		return errors.Wrap(encapdoc.ErrMalformedInput, "no encapsulated document")
	}
	data, _ := elem.GetBytes()
	if l, ok := ds.Get(tag.EncapsulatedDocumentLength); ok {
		if n, ok := l.GetInt(); ok && n <= len(data) {
			data = data[:n]
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(errors.Mark(err, encapdoc.ErrPersistFailure), "writing %s", path)
	}
	return nil
}
