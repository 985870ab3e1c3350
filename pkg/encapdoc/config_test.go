package encapdoc

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{Kind: KindPDF, InputPath: "in.pdf", OutputPath: "out.dcm"}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown kind", func(c *Config) { c.Kind = "docx" }},
		{"no input", func(c *Config) { c.InputPath = "" }},
		{"no output", func(c *Config) { c.OutputPath = "" }},
		{"negative instance", func(c *Config) { c.InstanceNumber = -1 }},
		{"increment without series", func(c *Config) { c.IncrementInstance = true }},
		{"bad annotation", func(c *Config) { c.BurnedInAnnotation = "maybe" }},
		{"bad visual features", func(c *Config) { c.RecognizableVisualFeatures = "1" }},
		{"negative payload limit", func(c *Config) { c.MaxPayloadBytes = -1 }},
		{"negative depth", func(c *Config) { c.MaxMarkupDepth = -1 }},
		{"bad syntax", func(c *Config) { c.Encoding.TransferSyntax = "jpeg" }},
		{"bad group length", func(c *Config) { c.Encoding.GroupLength = "sometimes" }},
		{"bad sequence length", func(c *Config) { c.Encoding.SequenceLength = "short" }},
		{"odd item padding", func(c *Config) { c.Encoding.ItemPadding = 7 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUsage), "got %v", err)
			assert.Equal(t, 1, ExitCode(err))
		})
	}
}

func TestEncodingConfig_WriteOptions(t *testing.T) {
	opts, err := EncodingConfig{}.WriteOptions()
	require.NoError(t, err)
	assert.Equal(t, dicom.WriteOptions{TransferSyntax: transfer.ExplicitVRLittleEndian}, opts)

	opts, err = EncodingConfig{
		TransferSyntax: "deflated",
		GroupLength:    "create",
		SequenceLength: "Explicit",
		FilePadding:    256,
		ItemPadding:    16,
	}.WriteOptions()
	require.NoError(t, err)
	assert.Equal(t, transfer.DeflatedExplicitVRLittleEndian, opts.TransferSyntax)
	assert.Equal(t, dicom.GroupLengthRecalc, opts.GroupLength)
	assert.Equal(t, dicom.SequenceLengthExplicit, opts.SequenceLength)
	assert.Equal(t, 256, opts.FilePadding)
	assert.Equal(t, 16, opts.ItemPadding)
	assert.False(t, opts.DatasetOnly)

	opts, err = EncodingConfig{WriteMode: "dataset"}.WriteOptions()
	require.NoError(t, err)
	assert.True(t, opts.DatasetOnly)

	_, err = EncodingConfig{WriteMode: "stream"}.WriteOptions()
	assert.True(t, errors.Is(err, ErrUsage))
}
