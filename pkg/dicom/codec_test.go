package dicom

import (
	"bytes"
	"testing"

	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSOPClass = "1.2.840.10008.5.1.4.1.1.104.1"

func buildTestDataset(t *testing.T) *Dataset {
	t.Helper()
	concept, err := NewDataset(
		WithElement(tag.CodeValue, "11488-4"),
		WithElement(tag.CodingSchemeDesignator, "LN"),
		WithElement(tag.CodeMeaning, "Consult note"),
	)
	require.NoError(t, err)
	ds, err := NewDataset(
		WithFileMeta(testSOPClass, "1.2.3.4.5", string(transfer.ExplicitVRLittleEndian)),
		WithElement(tag.SOPClassUID, testSOPClass),
		WithElement(tag.SOPInstanceUID, "1.2.3.4.5"),
		WithElement(tag.PatientName, "Doe^John"),
		WithElement(tag.PatientID, "PAT-001"),
		WithElement(tag.InstanceNumber, "3"),
		WithElement(tag.ListOfMIMETypes, []string{"image/png", "text/plain"}),
		WithSequence(tag.ConceptNameCodeSequence, concept),
		WithElement(tag.EncapsulatedDocument, []byte{1, 2, 3}),
		WithElement(tag.EncapsulatedDocumentLength, uint32(3)),
	)
	require.NoError(t, err)
	return ds
}

func TestRoundTrip_AllTransferSyntaxes(t *testing.T) {
	syntaxes := []transfer.Syntax{
		transfer.ExplicitVRLittleEndian,
		transfer.ImplicitVRLittleEndian,
		transfer.ExplicitVRBigEndian,
		transfer.DeflatedExplicitVRLittleEndian,
	}
	for _, ts := range syntaxes {
		t.Run(ts.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			n, err := WriteWithOptions(&buf, buildTestDataset(t), WriteOptions{TransferSyntax: ts})
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), n)

			r := NewReader(bytes.NewReader(buf.Bytes()))
			got, err := r.ReadDataset()
			require.NoError(t, err)
			assert.Equal(t, ts, r.TransferSyntax())

			assert.Equal(t, "Doe^John", got.GetString(tag.PatientName))
			assert.Equal(t, "1.2.3.4.5", got.GetString(tag.SOPInstanceUID))
			assert.Equal(t, "3", got.GetString(tag.InstanceNumber))
			assert.Equal(t, `image/png\text/plain`, got.GetString(tag.ListOfMIMETypes))

			elem, ok := got.Get(tag.EncapsulatedDocumentLength)
			require.True(t, ok)
			length, ok := elem.GetUint32()
			require.True(t, ok)
			assert.Equal(t, uint32(3), length)

			doc, ok := got.Get(tag.EncapsulatedDocument)
			require.True(t, ok)
			b, ok := doc.GetBytes()
			require.True(t, ok)
			assert.Equal(t, []byte{1, 2, 3, 0}, b)

			items := GetSequenceItems(got, tag.ConceptNameCodeSequence)
			require.Len(t, items, 1)
			assert.Equal(t, "11488-4", items[0].GetString(tag.CodeValue))
			assert.Equal(t, "Consult note", items[0].GetString(tag.CodeMeaning))
		})
	}
}

func TestWrite_FileMetaAlwaysExplicitLittleEndian(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteWithOptions(&buf, buildTestDataset(t), WriteOptions{TransferSyntax: transfer.ExplicitVRBigEndian})
	require.NoError(t, err)

	raw := buf.Bytes()
	assert.Equal(t, "DICM", string(raw[128:132]))
	// (0002,0000) UL 4 in little endian
	assert.Equal(t, []byte{0x02, 0x00, 0x00, 0x00, 'U', 'L', 0x04, 0x00}, raw[132:140])

	ds, err := ReadBuffer(raw)
	require.NoError(t, err)
	version, ok := ds.Get(tag.FileMetaInformationVersion)
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x01}, version.Value)
	assert.Equal(t, string(transfer.ExplicitVRBigEndian), ds.GetString(tag.TransferSyntaxUID))
	assert.Equal(t, ImplementationClassUID, ds.GetString(tag.ImplementationClassUID))
}

func TestWrite_UIPaddedWithNull(t *testing.T) {
	ds, err := NewDataset(WithElement(tag.SOPInstanceUID, "1.2.3"))
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = Write(&buf, ds)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(buf.Bytes(), []byte("UI\x06\x001.2.3\x00")))
}

func TestWrite_SequenceLengthModes(t *testing.T) {
	for _, mode := range []SequenceLength{SequenceLengthUndefined, SequenceLengthExplicit} {
		var buf bytes.Buffer
		_, err := WriteWithOptions(&buf, buildTestDataset(t), WriteOptions{SequenceLength: mode})
		require.NoError(t, err)

		delimiter := []byte{0xFE, 0xFF, 0xDD, 0xE0}
		if mode == SequenceLengthExplicit {
			assert.False(t, bytes.Contains(buf.Bytes(), delimiter))
		} else {
			assert.True(t, bytes.Contains(buf.Bytes(), delimiter))
		}

		got, err := ReadBuffer(buf.Bytes())
		require.NoError(t, err)
		items := GetSequenceItems(got, tag.ConceptNameCodeSequence)
		require.Len(t, items, 1)
		assert.Equal(t, "LN", items[0].GetString(tag.CodingSchemeDesignator))
	}
}

func TestWrite_GroupLength(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteWithOptions(&buf, buildTestDataset(t), WriteOptions{GroupLength: GroupLengthRecalc})
	require.NoError(t, err)
	got, err := ReadBuffer(buf.Bytes())
	require.NoError(t, err)

	gl, ok := got.Get(Tag{Group: 0x0010, Element: 0x0000})
	require.True(t, ok)
	length, ok := gl.GetUint32()
	require.True(t, ok)
	// PatientName (8+8) and PatientID (8+8)
	assert.Equal(t, uint32(32), length)

	buf.Reset()
	_, err = WriteWithOptions(&buf, got, WriteOptions{GroupLength: GroupLengthNone})
	require.NoError(t, err)
	again, err := ReadBuffer(buf.Bytes())
	require.NoError(t, err)
	_, ok = again.Get(Tag{Group: 0x0010, Element: 0x0000})
	assert.False(t, ok)
}

func TestWrite_Padding(t *testing.T) {
	for _, ts := range []transfer.Syntax{transfer.ExplicitVRLittleEndian, transfer.ImplicitVRLittleEndian} {
		var buf bytes.Buffer
		_, err := WriteWithOptions(&buf, buildTestDataset(t), WriteOptions{TransferSyntax: ts, FilePadding: 256, ItemPadding: 16})
		require.NoError(t, err)
		assert.Zero(t, buf.Len()%256, ts.Name())

		got, err := ReadBuffer(buf.Bytes())
		require.NoError(t, err)
		_, ok := got.Get(tag.DataSetTrailingPadding)
		assert.True(t, ok)
		assert.Equal(t, "PAT-001", got.GetString(tag.PatientID))
	}
}

func TestWriteOptions_Validate(t *testing.T) {
	assert.NoError(t, WriteOptions{}.Validate())
	assert.Error(t, WriteOptions{FilePadding: 3}.Validate())
	assert.Error(t, WriteOptions{ItemPadding: -2}.Validate())
	assert.Error(t, WriteOptions{TransferSyntax: "1.2.840.10008.1.2.4.50"}.Validate())
}

func TestWrite_ShortVRTooLong(t *testing.T) {
	ds := NewEmptyDataset()
	ds.Set(tag.PatientID, "LO", string(make([]byte, 70000)))
	var buf bytes.Buffer
	_, err := Write(&buf, ds)
	assert.Error(t, err)
}

func TestRead_Errors(t *testing.T) {
	_, err := ReadBuffer([]byte("short"))
	assert.Error(t, err)

	_, err = ReadBuffer(make([]byte, 132))
	assert.ErrorIs(t, err, ErrNotDICOM)

	var buf bytes.Buffer
	_, err = Write(&buf, buildTestDataset(t))
	require.NoError(t, err)
	truncated := buf.Bytes()[:buf.Len()-2]
	_, err = ReadBuffer(truncated)
	assert.Error(t, err)
}

func TestReadWrite_File(t *testing.T) {
	path := t.TempDir() + "/doc.dcm"
	_, err := WriteFile(path, buildTestDataset(t))
	require.NoError(t, err)
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PAT-001", got.GetString(tag.PatientID))
}

func TestFragments_RoundTrip(t *testing.T) {
	ds := NewEmptyDataset()
	ds.Set(Tag{Group: 0x7FE0, Element: 0x0010}, "OB", Fragments{{}, {1, 2, 3}})
	var buf bytes.Buffer
	_, err := Write(&buf, ds)
	require.NoError(t, err)
	got, err := ReadBuffer(buf.Bytes())
	require.NoError(t, err)
	elem, ok := got.Get(Tag{Group: 0x7FE0, Element: 0x0010})
	require.True(t, ok)
	frags, ok := elem.Value.(Fragments)
	require.True(t, ok)
	require.Len(t, frags, 2)
	assert.Equal(t, []byte{1, 2, 3, 0}, frags[1])
}

func TestWrite_DatasetOnly(t *testing.T) {
	for _, ts := range []transfer.Syntax{transfer.ExplicitVRLittleEndian, transfer.ImplicitVRLittleEndian, transfer.DeflatedExplicitVRLittleEndian} {
		t.Run(ts.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			n, err := WriteWithOptions(&buf, buildTestDataset(t), WriteOptions{TransferSyntax: ts, DatasetOnly: true})
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), n)
			assert.NotContains(t, buf.String(), "DICM")

			_, err = ReadBuffer(buf.Bytes())
			assert.Error(t, err)

			ds, err := ParseDataset(bytes.NewReader(buf.Bytes()), ts)
			require.NoError(t, err)
			assert.Equal(t, "Doe^John", ds.GetString(tag.PatientName))
			_, ok := ds.Get(tag.TransferSyntaxUID)
			assert.False(t, ok)
			items := GetSequenceItems(ds, tag.ConceptNameCodeSequence)
			require.Len(t, items, 1)
			assert.Equal(t, "11488-4", items[0].GetString(tag.CodeValue))
		})
	}
}
