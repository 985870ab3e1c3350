package encapdoc

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustOverride(t *testing.T, s string) OverrideKey {
	t.Helper()
	k, err := ParseOverride(s)
	require.NoError(t, err)
	return k
}

func TestParseOverride(t *testing.T) {
	k := mustOverride(t, "PatientName=Doe^John")
	assert.True(t, k.HasValue)
	assert.Equal(t, "Doe^John", k.Value)
	require.Len(t, k.Path, 1)
	assert.Equal(t, tag.PatientName, k.Path[0].Tag)
	assert.Equal(t, "PN", k.Path[0].VR)

	k = mustOverride(t, "(0010,0020)")
	assert.False(t, k.HasValue)
	assert.Equal(t, tag.PatientID, k.Path[0].Tag)

	k = mustOverride(t, "ConceptNameCodeSequence[2].0008,0100=X=Y")
	require.Len(t, k.Path, 2)
	assert.Equal(t, 2, k.Path[0].Index)
	assert.Equal(t, tag.CodeValue, k.Path[1].Tag)
	assert.Equal(t, "X=Y", k.Value)
	assert.Equal(t, "ConceptNameCodeSequence[2]", k.Path[0].String())
}

func TestParseOverride_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"", ErrUsage},
		{"=value", ErrUsage},
		{"NoSuchAttributeKeyword=1", ErrUnknownAttribute},
		{"PatientName[0]", ErrUsage},
		{"PatientName.PatientID=1", ErrUsage},
		{"ConceptNameCodeSequence.CodeValue=1", ErrUsage},
		{"ConceptNameCodeSequence[x].CodeValue=1", ErrUsage},
		{"ConceptNameCodeSequence[0.CodeValue=1", ErrUsage},
		{"ConceptNameCodeSequence=1", ErrUsage},
		{"EncapsulatedDocumentLength=-1", ErrUsage},
		{"EncapsulatedDocumentLength=ten", ErrUsage},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseOverride(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestApplyOverrides_ReplacesInOrder(t *testing.T) {
	ds, err := dicom.NewDataset(dicom.WithElement(tag.PatientName, "Levin^Henry"))
	require.NoError(t, err)
	keys, err := ParseOverrides([]string{"PatientName=Smith", "PatientName=Doe^John", "PatientID=42"})
	require.NoError(t, err)
	require.NoError(t, ApplyOverrides(ds, keys))
	assert.Equal(t, "Doe^John", ds.GetString(tag.PatientName))
	assert.Equal(t, "42", ds.GetString(tag.PatientID))
}

func TestApplyOverrides_EmptyValue(t *testing.T) {
	ds, err := dicom.NewDataset(dicom.WithElement(tag.PatientID, "12345"))
	require.NoError(t, err)
	require.NoError(t, mustOverride(t, "PatientID").Apply(ds))
	elem, ok := ds.Get(tag.PatientID)
	require.True(t, ok)
	assert.Equal(t, "", elem.Value)
}

func TestApplyOverrides_Sequences(t *testing.T) {
	ds := dicom.NewEmptyDataset()
	require.NoError(t, mustOverride(t, "ConceptNameCodeSequence[1].CodeValue=11488-4").Apply(ds))

	items := dicom.GetSequenceItems(ds, tag.ConceptNameCodeSequence)
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].Len())
	assert.Equal(t, "11488-4", items[1].GetString(tag.CodeValue))

	require.NoError(t, mustOverride(t, "ConceptNameCodeSequence[*].CodeMeaning=Consult").Apply(ds))
	items = dicom.GetSequenceItems(ds, tag.ConceptNameCodeSequence)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, "Consult", item.GetString(tag.CodeMeaning))
	}

	require.NoError(t, mustOverride(t, "ConceptNameCodeSequence").Apply(ds))
	assert.Empty(t, dicom.GetSequenceItems(ds, tag.ConceptNameCodeSequence))
	elem, ok := ds.Get(tag.ConceptNameCodeSequence)
	require.True(t, ok)
	assert.Equal(t, "SQ", elem.VR)
}

func TestApplyOverrides_WildcardOnMissingSequence(t *testing.T) {
	ds := dicom.NewEmptyDataset()
	require.NoError(t, mustOverride(t, "ConceptNameCodeSequence[*].CodeValue=1").Apply(ds))
	assert.Empty(t, dicom.GetSequenceItems(ds, tag.ConceptNameCodeSequence))
}

func TestApplyOverrides_NumericValues(t *testing.T) {
	ds := dicom.NewEmptyDataset()
	keys, err := ParseOverrides([]string{
		"EncapsulatedDocumentLength=12",
		"(0028,0010)=1\\2",
		"(0009,0010)=ACME",
	})
	require.NoError(t, err)
	require.NoError(t, ApplyOverrides(ds, keys))

	elem, _ := ds.Get(tag.EncapsulatedDocumentLength)
	assert.Equal(t, uint32(12), elem.Value)
	elem, _ = ds.Get(tag.New(0x0028, 0x0010))
	assert.Equal(t, []uint16{1, 2}, elem.Value)
	elem, _ = ds.Get(tag.New(0x0009, 0x0010))
	assert.Equal(t, []byte("ACME"), elem.Value)
}

func TestConvertValue(t *testing.T) {
	tests := []struct {
		vr   string
		text string
		want interface{}
	}{
		{"LO", "plain text", "plain text"},
		{"SS", "-2", int16(-2)},
		{"SS", "-1\\3", []uint16{0xFFFF, 3}},
		{"SL", "-5", int32(-5)},
		{"FL", "1.5", float32(1.5)},
		{"FD", "0.25\\4", []float64{0.25, 4}},
		{"OB", "raw", []byte("raw")},
	}
	for _, tt := range tests {
		got, err := convertValue(tt.vr, tt.text)
		require.NoError(t, err, tt.vr)
		assert.Equal(t, tt.want, got, tt.vr)
	}

	_, err := convertValue("US", "70000")
	assert.True(t, errors.Is(err, ErrUsage))
}
