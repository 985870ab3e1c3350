package encapdoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersist_EncodeFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	ds := dicom.NewEmptyDataset()
	// a short VR cannot hold more than 0xFFFF bytes
	ds.Set(tag.PatientName, "PN", strings.Repeat("x", 70000))

	_, err := Persist(filepath.Join(dir, "out.dcm"), ds, dicom.WriteOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistFailure))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPersist_Writes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.dcm")
	ds, err := dicom.NewDataset(
		dicom.WithFileMeta(KindPDF.SOPClassUID(), "1.2.3", ""),
		dicom.WithElement(tag.PatientID, "P1"),
	)
	require.NoError(t, err)
	n, err := Persist(path, ds, dicom.WriteOptions{})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), n)
	got, err := dicom.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "P1", got.GetString(tag.PatientID))
}
