package encapdoc

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
	"github.com/jpfielding/encapdoc.go/pkg/uid"
)

// IdentifierSet is the identifier chain of one output file. Every UID is
// valid once resolved and is never regenerated within a run.
type IdentifierSet struct {
	StudyInstanceUID    string
	SeriesInstanceUID   string
	SOPInstanceUID      string
	FrameOfReferenceUID string // 3D models only
	InstanceNumber      int
}

// SeriesContext is the part of an existing file that a new instance joins
type SeriesContext struct {
	StudyInstanceUID  string
	SeriesInstanceUID string
	InstanceNumber    int
}

// LoadSeriesContext reads the study, series and instance number of the
// DICOM file at path
func LoadSeriesContext(path string) (SeriesContext, error) {
	var sc SeriesContext
	ds, err := dicom.ReadFile(path)
	if err != nil {
		return sc, mark(err, ErrSeriesContextUnavailable, "reading series context %s", path)
	}
	sc.StudyInstanceUID = ds.GetString(tag.StudyInstanceUID)
	sc.SeriesInstanceUID = ds.GetString(tag.SeriesInstanceUID)
	if elem, ok := ds.Get(tag.InstanceNumber); ok {
		sc.InstanceNumber, _ = elem.GetInt()
	}
	if sc.StudyInstanceUID == "" || sc.SeriesInstanceUID == "" {
		return sc, errors.Wrapf(ErrSeriesContextUnavailable,
			"series context %s lacks study or series instance UID", path)
	}
	for _, u := range []string{sc.StudyInstanceUID, sc.SeriesInstanceUID} {
		if err := uid.Validate(u); err != nil {
			return sc, mark(err, ErrInvalidIdentifier, "series context %s", path)
		}
	}
	return sc, nil
}

// ResolveIdentifiers determines the identifier chain from the configured
// UIDs, the optional series context and fresh UIDs for whatever is missing.
func (e *Engine) ResolveIdentifiers(ctx context.Context) (IdentifierSet, error) {
	var ids IdentifierSet
	for _, u := range []struct {
		name, value string
	}{
		{"study instance UID", e.cfg.StudyInstanceUID},
		{"series instance UID", e.cfg.SeriesInstanceUID},
	} {
		if u.value == "" {
			continue
		}
		if err := uid.Validate(u.value); err != nil {
			return ids, errors.WithHint(mark(err, ErrInvalidIdentifier, "%s %q", u.name, u.value),
				"UIDs are dot separated numbers of at most 64 characters")
		}
	}

	// study and series go through a record so a context disagreeing with
	// the configuration is a conflict like any other field
	rec := NewRecord(e.cfg.PreferConfigured)
	if err := rec.Reconcile(ctx, FieldStudyInstanceUID, e.cfg.StudyInstanceUID, SourceConfig); err != nil {
		return ids, err
	}
	if err := rec.Reconcile(ctx, FieldSeriesInstanceUID, e.cfg.SeriesInstanceUID, SourceConfig); err != nil {
		return ids, err
	}

	var sc SeriesContext
	loaded := false
	if e.cfg.SeriesFile != "" {
		var err error
		sc, err = LoadSeriesContext(e.cfg.SeriesFile)
		switch {
		case err == nil:
			loaded = true
		case e.cfg.SeriesContextOptional && errors.Is(err, ErrSeriesContextUnavailable):
			slog.WarnContext(ctx, "series context unavailable, using fresh identifiers",
				"path", e.cfg.SeriesFile, "error", err)
		default:
			return ids, err
		}
	}
	if loaded {
		if err := rec.Reconcile(ctx, FieldStudyInstanceUID, sc.StudyInstanceUID, SourceSeriesContext); err != nil {
			return ids, err
		}
		if err := rec.Reconcile(ctx, FieldSeriesInstanceUID, sc.SeriesInstanceUID, SourceSeriesContext); err != nil {
			return ids, err
		}
	}

	ids.StudyInstanceUID = rec.Get(FieldStudyInstanceUID)
	ids.SeriesInstanceUID = rec.Get(FieldSeriesInstanceUID)
	if ids.StudyInstanceUID == "" {
		ids.StudyInstanceUID = uid.New()
	}
	if ids.SeriesInstanceUID == "" {
		ids.SeriesInstanceUID = uid.New()
	}
	ids.SOPInstanceUID = uid.New()
	if e.cfg.Kind.Is3D() {
		ids.FrameOfReferenceUID = uid.New()
	}

	switch {
	case e.cfg.IncrementInstance && loaded:
		ids.InstanceNumber = sc.InstanceNumber + 1
		if e.cfg.InstanceNumber != 0 && e.cfg.InstanceNumber != ids.InstanceNumber {
			slog.WarnContext(ctx, "instance increment replaces the configured instance number",
				"configured", e.cfg.InstanceNumber, "instance_number", ids.InstanceNumber)
		}
	case e.cfg.InstanceNumber > 0:
		ids.InstanceNumber = e.cfg.InstanceNumber
	default:
		ids.InstanceNumber = 1
	}

	slog.DebugContext(ctx, "resolved identifiers",
		"study", ids.StudyInstanceUID, "series", ids.SeriesInstanceUID,
		"sop_instance", ids.SOPInstanceUID, "instance_number", ids.InstanceNumber,
		"series_context", loaded)
	return ids, nil
}
