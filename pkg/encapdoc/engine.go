// Package encapdoc converts CDA, PDF and 3D model documents into DICOM
// encapsulated document instances.
package encapdoc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
	"github.com/jpfielding/encapdoc.go/pkg/logging"
)

// Engine runs one conversion. It holds a private copy of the configuration
// and no state between stages; each Run builds its own record and identifiers.
type Engine struct {
	cfg       Config
	now       func() time.Time
	overrides []OverrideKey
	write     dicom.WriteOptions
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithClock replaces time.Now for the dates and times written to the header
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// New validates cfg and parses its overrides
func New(cfg Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	write, err := cfg.Encoding.WriteOptions()
	if err != nil {
		return nil, err
	}
	overrides, err := ParseOverrides(cfg.Overrides)
	if err != nil {
		return nil, err
	}
	cfg.Overrides = append([]string(nil), cfg.Overrides...)
	e := &Engine{cfg: cfg, now: time.Now, overrides: overrides, write: write}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine's configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Result describes a written file
type Result struct {
	Path           string
	Kind           DocumentKind
	Identifiers    IdentifierSet
	PayloadLength  int64
	BytesWritten   int64
	MediaTypes     []string
	TransferSyntax string
}

// Run extracts, resolves, builds and persists in that order, stopping at the
// first error. No output exists unless Run succeeds.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	ctx = logging.AppendCtx(ctx, slog.Group("doc",
		slog.String("kind", string(e.cfg.Kind)),
		slog.String("input", e.cfg.InputPath),
		slog.String("output", e.cfg.OutputPath),
	))
	rec, err := e.ExtractMetadata(ctx, e.cfg.InputPath)
	if err != nil {
		return nil, err
	}
	ids, err := e.ResolveIdentifiers(ctx)
	if err != nil {
		return nil, err
	}
	return e.BuildAndPersist(ctx, rec, ids, SourceDocument{Path: e.cfg.InputPath, Kind: e.cfg.Kind})
}

// BuildAndPersist builds the header, inserts the payload, applies the
// overrides and writes the output file.
func (e *Engine) BuildAndPersist(ctx context.Context, rec *Record, ids IdentifierSet, src SourceDocument) (*Result, error) {
	if src.Kind != e.cfg.Kind {
		return nil, errors.Wrapf(ErrUsage, "source is %s, engine converts %s", src.Kind, e.cfg.Kind)
	}
	ds, err := BuildHeader(ctx, rec, ids, e.cfg, e.now())
	if err != nil {
		return nil, err
	}
	n, err := InsertPayload(ds, src, e.cfg.MaxPayloadBytes)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "inserted payload", "path", src.Path, "length", n)

	if res := dicom.ValidateEncapsulatedDocument(ds, src.Kind.Is3D()); !res.IsValid() {
		msgs := make([]string, 0, len(res.Errors))
		for _, v := range res.Errors {
			msgs = append(msgs, v.Error())
		}
		return nil, errors.AssertionFailedf("built %s header is invalid: %s", src.Kind, strings.Join(msgs, "; "))
	}

	// overrides are unchecked and may undo anything above
	if err := ApplyOverrides(ds, e.overrides); err != nil {
		return nil, err
	}
	if len(e.overrides) > 0 {
		slog.DebugContext(ctx, "applied overrides", "count", len(e.overrides))
	}

	written, err := Persist(e.cfg.OutputPath, ds, e.write)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "wrote encapsulated document",
		"kind", src.Kind, "output", e.cfg.OutputPath, "bytes", written,
		"sop_instance", ids.SOPInstanceUID, "instance_number", ids.InstanceNumber)
	return &Result{
		Path:           e.cfg.OutputPath,
		Kind:           src.Kind,
		Identifiers:    ids,
		PayloadLength:  n,
		BytesWritten:   written,
		MediaTypes:     rec.MediaTypes,
		TransferSyntax: string(e.write.TransferSyntax),
	}, nil
}
