package encapdoc

import (
	"context"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/cda"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/module"
)

// ExtractMetadata seeds a record from the configuration and, for CDA
// documents, reconciles every mapped field found in the document at path.
func (e *Engine) ExtractMetadata(ctx context.Context, path string) (*Record, error) {
	rec := NewRecord(e.cfg.PreferConfigured)
	if err := seedRecord(ctx, rec, e.cfg); err != nil {
		return nil, err
	}
	if e.cfg.Kind != KindCDA {
		return rec, nil
	}

	var opts []cda.ParseOption
	if e.cfg.MaxMarkupDepth > 0 {
		opts = append(opts, cda.WithMaxDepth(e.cfg.MaxMarkupDepth))
	}
	root, err := cda.ParseFile(path, opts...)
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return nil, mark(err, ErrIOFailure, "reading %s", path)
		}
		return nil, mark(err, ErrMalformedInput, "parsing %s", path)
	}
	if err := Extract(ctx, rec, root, cda.SearchDepth(e.cfg.MaxMarkupDepth)); err != nil {
		return nil, errors.Wrapf(err, "extracting from %s", path)
	}
	slog.DebugContext(ctx, "extracted document metadata",
		"path", path, "media_types", rec.MediaTypes, "title", rec.Get(FieldDocumentTitle))
	return rec, nil
}

// seedRecord loads the configured values, which are reconciled first
func seedRecord(ctx context.Context, rec *Record, cfg Config) error {
	seeds := []struct {
		field Field
		value string
	}{
		{FieldPatientName, cfg.PatientName},
		{FieldPatientID, cfg.PatientID},
		{FieldPatientBirthDate, cfg.PatientBirthDate},
		{FieldPatientSex, cfg.PatientSex},
		{FieldConceptCodeValue, cfg.ConceptCodeValue},
		{FieldConceptCodingScheme, cfg.ConceptCodingScheme},
		{FieldConceptCodeMeaning, cfg.ConceptCodeMeaning},
		{FieldDocumentTitle, cfg.DocumentTitle},
	}
	for _, s := range seeds {
		if err := rec.Reconcile(ctx, s.field, s.value, SourceConfig); err != nil {
			return err
		}
	}
	return nil
}

// Extract reconciles the fields found under root into rec, stopping at the
// first conflict. The root must be a ClinicalDocument. Pass the depth limit
// the document was parsed under with cda.SearchDepth.
func Extract(ctx context.Context, rec *Record, root *cda.Node, opts ...cda.SearchOption) error {
	if root == nil || root.Name != cda.RootElement {
		name := ""
		if root != nil {
			name = root.Name
		}
		return errors.Wrapf(ErrMalformedInput, "root element is <%s>, want <%s>", name, cda.RootElement)
	}
	for _, f := range cda.Fields {
		keys, err := cda.Resolve(f)
		if err != nil {
			return errors.NewAssertionErrorWithWrappedErrf(err, "field %s", f)
		}
		if f == cda.MediaTypes {
			values, err := cda.SearchAll(root, keys[0], opts...)
			if err != nil {
				return mark(err, ErrMalformedInput, "searching %s", f)
			}
			for _, mt := range values {
				rec.AddMediaType(mt)
			}
			continue
		}
		value, found, err := extractField(root, f, keys, opts)
		if err != nil {
			return mark(err, ErrMalformedInput, "searching %s", f)
		}
		if !found {
			continue
		}
		if err := rec.Reconcile(ctx, Field(f), value, SourceMarkup); err != nil {
			return errors.WithHint(err, "drop the configured value or prefer configured values")
		}
	}
	return nil
}

func extractField(root *cda.Node, f cda.Field, keys []cda.SearchKey, opts []cda.SearchOption) (string, bool, error) {
	switch f {
	case cda.PatientName:
		return extractName(root, keys, opts)
	case cda.PatientBirthDate:
		return searchEach(root, keys[0], normalizeDate, opts)
	case cda.PatientSex:
		return searchEach(root, keys[0], normalizeSex, opts)
	case cda.HL7InstanceIdentifier:
		rootID, ok, err := cda.Search(root, keys[0], opts...)
		if err != nil || !ok {
			return "", ok, err
		}
		ext, _, err := cda.Search(root, keys[1], opts...)
		if err != nil {
			return "", false, err
		}
		if ext != "" {
			return rootID + "^" + ext, true, nil
		}
		return rootID, true, nil
	}
	return cda.Search(root, keys[0], opts...)
}

// searchEach normalizes every match on its own before joining
func searchEach(root *cda.Node, key cda.SearchKey, norm func(string) string, opts []cda.SearchOption) (string, bool, error) {
	values, err := cda.SearchAll(root, key, opts...)
	if err != nil || len(values) == 0 {
		return "", false, err
	}
	for i, v := range values {
		values[i] = norm(v)
	}
	return strings.Join(values, cda.Separator), true, nil
}

// extractName builds one Family^Given^Middle^Prefix^Suffix per name element,
// joined with the separator. Given names after the first become the middle
// name. The name keys share their parent path and differ in the last step.
func extractName(root *cda.Node, keys []cda.SearchKey, opts []cda.SearchOption) (string, bool, error) {
	parent := keys[0]
	parent.Path = parent.Path[:len(parent.Path)-1]
	parent.Attr = ""
	elems, err := cda.Nodes(root, parent, opts...)
	if err != nil || len(elems) == 0 {
		return "", false, err
	}

	names := make([]string, 0, len(elems))
	found := false
	for _, el := range elems {
		parts := make([][]string, len(keys))
		for i, k := range keys {
			child := cda.SearchKey{Path: k.Path[len(k.Path)-1:], Attr: k.Attr, Anchored: true}
			values, err := cda.SearchAll(el, child, opts...)
			if err != nil {
				return "", false, err
			}
			parts[i] = values
			found = found || len(values) > 0
		}
		names = append(names, personName(parts[0], parts[1], parts[2], parts[3]))
	}
	if !found {
		return "", false, nil
	}
	return strings.Join(names, cda.Separator), true, nil
}

func personName(family, given, prefix, suffix []string) string {
	first := func(v []string) string {
		if len(v) == 0 {
			return ""
		}
		return v[0]
	}
	name := module.PersonName{
		FamilyName: strings.Join(family, " "),
		GivenName:  first(given),
		Prefix:     first(prefix),
		Suffix:     first(suffix),
	}
	if len(given) > 1 {
		name.MiddleName = strings.Join(given[1:], " ")
	}
	return name.String()
}

// normalizeDate keeps YYYYMMDD of an HL7 TS value
func normalizeDate(ts string) string {
	if len(ts) > 8 {
		return ts[:8]
	}
	return ts
}

// normalizeSex maps administrative gender codes to M, F or O
func normalizeSex(code string) string {
	switch strings.ToUpper(code) {
	case "":
		return ""
	case "M":
		return "M"
	case "F":
		return "F"
	}
	return "O"
}
