package encapdoc

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/transfer"
	"github.com/jpfielding/encapdoc.go/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdicom "github.com/suyashkumar/dicom"
	stag "github.com/suyashkumar/dicom/pkg/tag"
)

func TestRun_CDARoundTrip(t *testing.T) {
	cfg := testConfig(t, KindCDA, "testdata/consult.xml")
	res, err := newEngine(t, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.OutputPath, res.Path)
	assert.Equal(t, []string{"image/png", "image/jpeg"}, res.MediaTypes)

	ds, err := dicom.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, res.Identifiers.StudyInstanceUID, ds.GetString(tag.StudyInstanceUID))
	assert.Equal(t, res.Identifiers.SeriesInstanceUID, ds.GetString(tag.SeriesInstanceUID))
	assert.Equal(t, res.Identifiers.SOPInstanceUID, ds.GetString(tag.SOPInstanceUID))
	assert.Equal(t, "Levin^Henry^Walter^Dr.^the 7th", ds.GetString(tag.PatientName))
	assert.Equal(t, "19320924", ds.GetString(tag.PatientBirthDate))
	assert.Equal(t, "Good Health Clinic Consultation Note", ds.GetString(tag.DocumentTitle))
	assert.Equal(t, "text/XML", ds.GetString(tag.MIMETypeOfEncapsulatedDocument))

	elem, ok := ds.Get(tag.ListOfMIMETypes)
	require.True(t, ok)
	mimes, _ := elem.GetStrings()
	assert.Equal(t, []string{"image/png", "image/jpeg"}, mimes)

	src, err := os.ReadFile("testdata/consult.xml")
	require.NoError(t, err)
	elem, ok = ds.Get(tag.EncapsulatedDocument)
	require.True(t, ok)
	payload, _ := elem.GetBytes()
	assert.Equal(t, src, payload[:len(src)])
	assert.Equal(t, int64(len(src)), res.PayloadLength)

	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestRun_TransferSyntaxes(t *testing.T) {
	for _, name := range []string{"explicit-le", "implicit-le", "explicit-be", "deflated"} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t, KindPDF, pdfInput(t))
			cfg.PatientName = "Doe^Jane"
			cfg.Encoding = EncodingConfig{TransferSyntax: name, GroupLength: "recalc", SequenceLength: "explicit", FilePadding: 128}
			res, err := newEngine(t, cfg).Run(context.Background())
			require.NoError(t, err)

			r, err := os.Open(res.Path)
			require.NoError(t, err)
			defer r.Close()
			reader := dicom.NewReader(r)
			ds, err := reader.ReadDataset()
			require.NoError(t, err)
			assert.Equal(t, res.TransferSyntax, string(reader.TransferSyntax()))
			assert.Equal(t, "Doe^Jane", ds.GetString(tag.PatientName))
			assert.Equal(t, res.Identifiers.SOPInstanceUID, ds.GetString(tag.SOPInstanceUID))
		})
	}
}

func TestRun_ReadableByIndependentCodec(t *testing.T) {
	for _, kind := range []DocumentKind{KindCDA, KindSTL} {
		t.Run(string(kind), func(t *testing.T) {
			input := "testdata/consult.xml"
			if kind == KindSTL {
				input = "testdata/cube.stl"
			}
			cfg := testConfig(t, kind, input)
			cfg.PatientID = "12345"
			res, err := newEngine(t, cfg).Run(context.Background())
			require.NoError(t, err)

			ds, err := sdicom.ParseFile(res.Path, nil)
			require.NoError(t, err)
			id, err := ds.FindElementByTag(stag.PatientID)
			require.NoError(t, err)
			assert.Equal(t, "12345", strings.Trim(id.Value.String(), " []"))
			sop, err := ds.FindElementByTag(stag.SOPInstanceUID)
			require.NoError(t, err)
			assert.Equal(t, res.Identifiers.SOPInstanceUID, strings.Trim(sop.Value.String(), " []"))
		})
	}
}

func TestRun_OverrideAfterBuild(t *testing.T) {
	cfg := testConfig(t, KindCDA, "testdata/consult.xml")
	cfg.Overrides = []string{"PatientName=Doe^John", "(0042,0010)=Overridden"}
	res, err := newEngine(t, cfg).Run(context.Background())
	require.NoError(t, err)

	ds, err := dicom.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "Doe^John", ds.GetString(tag.PatientName))
	assert.Equal(t, "Overridden", ds.GetString(tag.DocumentTitle))
}

func TestRun_MissingRootLeavesNoOutput(t *testing.T) {
	cfg := testConfig(t, KindCDA, "testdata/not_cda.xml")
	_, err := newEngine(t, cfg).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindMalformedInput, KindOf(err))
	assert.Equal(t, 22, ExitCode(err))

	_, statErr := os.Stat(cfg.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
	entries, err := os.ReadDir(filepath.Dir(cfg.OutputPath))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_PersistFailure(t *testing.T) {
	cfg := testConfig(t, KindPDF, pdfInput(t))
	cfg.OutputPath = filepath.Join(t.TempDir(), "missing", "out.dcm")
	_, err := newEngine(t, cfg).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistFailure))
	assert.Equal(t, 40, ExitCode(err))
}

func TestRun_ReplacesExistingOutput(t *testing.T) {
	cfg := testConfig(t, KindPDF, pdfInput(t))
	require.NoError(t, os.WriteFile(cfg.OutputPath, []byte("old"), 0o600))
	_, err := newEngine(t, cfg).Run(context.Background())
	require.NoError(t, err)
	_, err = dicom.ReadFile(cfg.OutputPath)
	assert.NoError(t, err)
}

func TestBuildAndPersist_KindMismatch(t *testing.T) {
	e := newEngine(t, testConfig(t, KindPDF, pdfInput(t)))
	_, err := e.BuildAndPersist(context.Background(), NewRecord(false), testIDs,
		SourceDocument{Path: "testdata/cube.stl", Kind: KindSTL})
	assert.True(t, errors.Is(err, ErrUsage))
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := testConfig(t, KindPDF, "in.pdf")
	cfg.Overrides = []string{"NotAnAttribute=1"}
	_, err := New(cfg)
	assert.True(t, errors.Is(err, ErrUnknownAttribute))
	assert.Equal(t, 26, ExitCode(err))

	cfg = testConfig(t, KindPDF, "in.pdf")
	cfg.Encoding.FilePadding = 3
	_, err = New(cfg)
	assert.True(t, errors.Is(err, ErrUsage))
}

func TestNew_CopiesOverrides(t *testing.T) {
	cfg := testConfig(t, KindPDF, "in.pdf")
	cfg.Overrides = []string{"PatientID=1"}
	e := newEngine(t, cfg)
	cfg.Overrides[0] = "PatientID=2"
	assert.Equal(t, "PatientID=1", e.Config().Overrides[0])
}

func TestRun_DatasetOnly(t *testing.T) {
	cfg := testConfig(t, KindPDF, pdfInput(t))
	cfg.Encoding = EncodingConfig{TransferSyntax: "implicit-le", WriteMode: "dataset"}
	res, err := newEngine(t, cfg).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), res.BytesWritten)
	_, err = dicom.ReadBuffer(data)
	assert.Error(t, err)

	ds, err := dicom.ParseDataset(bytes.NewReader(data), transfer.ImplicitVRLittleEndian)
	require.NoError(t, err)
	assert.Equal(t, res.Identifiers.SOPInstanceUID, ds.GetString(tag.SOPInstanceUID))
	_, ok := ds.Get(tag.MediaStorageSOPInstanceUID)
	assert.False(t, ok)
	elem, ok := ds.Get(tag.EncapsulatedDocument)
	require.True(t, ok)
	payload, _ := elem.GetBytes()
	assert.Len(t, payload, int(res.PayloadLength+res.PayloadLength%2))
}

func TestRun_LogsCarryRunAttributes(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.Logger(&buf, false, slog.LevelDebug))
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := testConfig(t, KindCDA, "testdata/consult.xml")
	cfg.PatientID = "99999"
	cfg.PreferConfigured = true
	ctx := logging.AppendCtx(context.Background(), slog.String("caller", "test"))
	_, err := newEngine(t, cfg).Run(ctx)
	require.NoError(t, err)

	warned := false
	for _, line := range strings.Split(buf.String(), "\n") {
		if !strings.Contains(line, "conflicting values") {
			continue
		}
		warned = true
		assert.Contains(t, line, "level=WARN")
		assert.Contains(t, line, "doc.kind=cda")
		assert.Contains(t, line, "doc.input=testdata/consult.xml")
		assert.Contains(t, line, "caller=test")
	}
	assert.True(t, warned, buf.String())
	assert.Contains(t, buf.String(), "wrote encapsulated document")
}
