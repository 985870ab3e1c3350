package encapdoc

import (
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentKind(t *testing.T) {
	k, err := ParseDocumentKind(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, KindPDF, k)

	_, err = ParseDocumentKind("docx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsage))
	assert.Contains(t, errors.FlattenHints(err), "cda, pdf")
}

func TestDocumentKind_Table(t *testing.T) {
	for _, k := range DocumentKinds {
		assert.NotEmpty(t, k.SOPClassUID(), k)
		assert.NotEmpty(t, k.MIMEType(), k)
	}
	assert.Equal(t, "1.2.840.10008.5.1.4.1.1.104.3", KindSTL.SOPClassUID())
	assert.Equal(t, "model/mtl", KindMTL.MIMEType())
	assert.True(t, KindOBJ.Is3D())
	assert.False(t, KindCDA.Is3D())
	assert.Equal(t, "DOC", KindPDF.Modality())
}

func TestDocumentKind_Sniff(t *testing.T) {
	binarySTL := make([]byte, 84+2*50)
	binary.LittleEndian.PutUint32(binarySTL[80:], 2)
	badCount := make([]byte, 84+50)
	binary.LittleEndian.PutUint32(badCount[80:], 9)

	tests := []struct {
		kind DocumentKind
		data string
		ok   bool
	}{
		{KindPDF, "%PDF-1.7", true},
		{KindPDF, "PDF-1.7", false},
		{KindCDA, `<?xml version="1.0"?><ClinicalDocument/>`, true},
		{KindCDA, `<hl7:ClinicalDocument xmlns:hl7="urn:hl7-org:v3"/>`, true},
		{KindCDA, `<html/>`, false},
		{KindSTL, "\n solid part", true},
		{KindSTL, string(binarySTL), true},
		{KindSTL, string(badCount), false},
		{KindOBJ, "v 0 0 0\n", true},
		{KindMTL, " \n\t", false},
	}
	for _, tt := range tests {
		err := tt.kind.Sniff([]byte(tt.data))
		if tt.ok {
			assert.NoError(t, err, "%s %q", tt.kind, tt.data)
		} else {
			assert.Error(t, err, "%s %q", tt.kind, tt.data)
		}
	}
	assert.Error(t, DocumentKind("doc").Sniff([]byte("x")))
}
