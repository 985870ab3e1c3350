package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/transfer"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/vr"
	"github.com/klauspost/compress/flate"
)

// GroupLength selects how (gggg,0000) elements are written in the dataset body
type GroupLength int

const (
	// GroupLengthNone drops all group length elements outside the file meta
	GroupLengthNone GroupLength = iota
	// GroupLengthRecalc writes a freshly computed group length for every group
	GroupLengthRecalc
)

// SequenceLength selects how sequences and items are delimited
type SequenceLength int

const (
	// SequenceLengthUndefined writes undefined lengths with delimitation items
	SequenceLengthUndefined SequenceLength = iota
	// SequenceLengthExplicit writes computed lengths and no delimiters
	SequenceLengthExplicit
)

// WriteOptions control the on-disk encoding of a dataset
type WriteOptions struct {
	// TransferSyntax of the body, defaults to the dataset's (0002,0010) or Explicit VR Little Endian
	TransferSyntax transfer.Syntax
	GroupLength    GroupLength
	SequenceLength SequenceLength
	// FilePadding pads the file to a multiple of this many bytes, 0 disables
	FilePadding int
	// ItemPadding pads each sequence item to a multiple of this many bytes, 0 disables
	ItemPadding int
	// DatasetOnly writes the body alone, without preamble and file meta
	DatasetOnly bool
}

// Validate checks padding values, which must be even and not negative
func (o WriteOptions) Validate() error {
	if o.FilePadding < 0 || o.FilePadding%2 != 0 {
		return fmt.Errorf("file padding must be a non-negative even number, got %d", o.FilePadding)
	}
	if o.ItemPadding < 0 || o.ItemPadding%2 != 0 {
		return fmt.Errorf("item padding must be a non-negative even number, got %d", o.ItemPadding)
	}
	if o.TransferSyntax != "" && !o.TransferSyntax.Supported() {
		return fmt.Errorf("unsupported transfer syntax %s", o.TransferSyntax)
	}
	return nil
}

// WriteFile writes a dataset to a DICOM file using default options
func WriteFile(path string, ds *Dataset) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Write(f, ds)
}

// Write writes a dataset to a writer using default options
func Write(w io.Writer, ds *Dataset) (int64, error) {
	return WriteWithOptions(w, ds, WriteOptions{})
}

// WriteWithOptions writes preamble, file meta and body with the given encoding
func WriteWithOptions(w io.Writer, ds *Dataset, opts WriteOptions) (int64, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	ts := opts.TransferSyntax
	if ts == "" {
		ts = transfer.FromUID(ds.GetString(tag.TransferSyntaxUID))
		if ts == "" {
			ts = transfer.ExplicitVRLittleEndian
		}
	}
	if !ts.Supported() {
		return 0, fmt.Errorf("unsupported transfer syntax %s", ts)
	}

	var meta []byte
	if !opts.DatasetOnly {
		m, err := encodeFileMeta(ds, ts)
		if err != nil {
			return 0, err
		}
		meta = m
	}

	enc := &encoder{explicitVR: ts.IsExplicitVR(), order: ts.ByteOrder(), opts: opts}
	var body bytes.Buffer
	if err := enc.writeBody(&body, ds); err != nil {
		return 0, err
	}
	if opts.FilePadding > 0 {
		total := body.Len()
		if !opts.DatasetOnly {
			total += 132 + len(meta)
		}
		if err := enc.writePadding(&body, total, opts.FilePadding); err != nil {
			return 0, err
		}
	}

	cw := &CountingWriter{Writer: w}
	if !opts.DatasetOnly {
		// Preamble (128 bytes 0x00) and DICM magic
		if _, err := cw.Write(make([]byte, 128)); err != nil {
			return cw.Count.Load(), err
		}
		if _, err := cw.Write([]byte("DICM")); err != nil {
			return cw.Count.Load(), err
		}
		if _, err := cw.Write(meta); err != nil {
			return cw.Count.Load(), err
		}
	}
	if ts.IsDeflated() {
		fw, err := flate.NewWriter(cw, flate.DefaultCompression)
		if err != nil {
			return cw.Count.Load(), err
		}
		if _, err := fw.Write(body.Bytes()); err != nil {
			return cw.Count.Load(), err
		}
		if err := fw.Close(); err != nil {
			return cw.Count.Load(), err
		}
		return cw.Count.Load(), nil
	}
	if _, err := cw.Write(body.Bytes()); err != nil {
		return cw.Count.Load(), err
	}
	return cw.Count.Load(), nil
}

// encodeFileMeta renders group 0002 in explicit VR little endian, prefixed by
// its group length. The version and transfer syntax are always written.
func encodeFileMeta(ds *Dataset, ts transfer.Syntax) ([]byte, error) {
	meta := NewEmptyDataset()
	for t, elem := range ds.Elements {
		if t.IsGroup0002() && !t.IsGroupLength() {
			meta.Elements[t] = elem
		}
	}
	if _, ok := meta.Get(tag.FileMetaInformationVersion); !ok {
		meta.Set(tag.FileMetaInformationVersion, "OB", []byte{0x00, 0x01})
	}
	meta.Set(tag.TransferSyntaxUID, "UI", string(ts))

	enc := &encoder{explicitVR: true, order: binary.LittleEndian}
	var buf bytes.Buffer
	for _, t := range meta.SortedTags() {
		if err := enc.writeElement(&buf, meta.Elements[t]); err != nil {
			return nil, fmt.Errorf("failed to write element %v: %w", t, err)
		}
	}
	var out bytes.Buffer
	groupLength := &Element{Tag: tag.FileMetaInformationGroupLength, VR: "UL", Value: uint32(buf.Len())}
	if err := enc.writeElement(&out, groupLength); err != nil {
		return nil, err
	}
	out.Write(buf.Bytes())
	return out.Bytes(), nil
}

// encoder writes elements in a single transfer syntax
type encoder struct {
	explicitVR bool
	order      binary.ByteOrder
	opts       WriteOptions
}

// writeBody writes every non-meta element. Existing group lengths and
// trailing padding are dropped and regenerated per the options.
func (e *encoder) writeBody(w *bytes.Buffer, ds *Dataset) error {
	var group uint16
	var groupBuf bytes.Buffer
	started := false
	flush := func() error {
		if !started {
			return nil
		}
		if e.opts.GroupLength == GroupLengthRecalc {
			gl := &Element{Tag: Tag{Group: group, Element: 0x0000}, VR: "UL", Value: uint32(groupBuf.Len())}
			if err := e.writeElement(w, gl); err != nil {
				return err
			}
		}
		w.Write(groupBuf.Bytes())
		groupBuf.Reset()
		return nil
	}
	for _, t := range ds.SortedTags() {
		if t.IsGroup0002() || t.IsGroupLength() || t == tag.DataSetTrailingPadding {
			continue
		}
		if !started || t.Group != group {
			if err := flush(); err != nil {
				return err
			}
			group = t.Group
			started = true
		}
		if err := e.writeElement(&groupBuf, ds.Elements[t]); err != nil {
			return fmt.Errorf("failed to write element %v: %w", t, err)
		}
	}
	return flush()
}

// writePadding appends a (FFFC,FFFC) element so that offset plus the padding
// element lands on a multiple of n.
func (e *encoder) writePadding(w *bytes.Buffer, offset, n int) error {
	hdr := 8
	if e.explicitVR {
		hdr = 12
	}
	k := (n - (offset+hdr)%n) % n
	pad := &Element{Tag: tag.DataSetTrailingPadding, VR: "OB", Value: make([]byte, k)}
	return e.writeElement(w, pad)
}

func (e *encoder) writeHeader(w *bytes.Buffer, t Tag, v string, length uint32) error {
	var b [4]byte
	e.order.PutUint16(b[0:], t.Group)
	e.order.PutUint16(b[2:], t.Element)
	w.Write(b[:])
	if !e.explicitVR {
		e.order.PutUint32(b[:], length)
		w.Write(b[:])
		return nil
	}
	w.WriteString(v)
	if vr.VR(v).IsLong() {
		w.Write([]byte{0, 0})
		e.order.PutUint32(b[:], length)
		w.Write(b[:])
		return nil
	}
	if length > math.MaxUint16 {
		return fmt.Errorf("value of %d bytes too long for VR %s", length, v)
	}
	e.order.PutUint16(b[:2], uint16(length))
	w.Write(b[:2])
	return nil
}

// writeDelimiter writes an item or sequence tag with a 4 byte length, which
// never carries a VR.
func (e *encoder) writeDelimiter(w *bytes.Buffer, t Tag, length uint32) {
	var b [8]byte
	e.order.PutUint16(b[0:], t.Group)
	e.order.PutUint16(b[2:], t.Element)
	e.order.PutUint32(b[4:], length)
	w.Write(b[:])
}

func (e *encoder) writeElement(w *bytes.Buffer, elem *Element) error {
	v := elem.VR
	if len(v) != 2 {
		slog.Warn("Invalid VR length, defaulting to dictionary", "vr", v, "tag", elem.Tag)
		v = tag.VROf(elem.Tag)
	}

	switch val := elem.Value.(type) {
	case []*Dataset:
		if v != string(vr.SQ) && v != string(vr.UN) {
			return fmt.Errorf("unexpected []*Dataset for VR %s", v)
		}
		return e.writeSequence(w, elem.Tag, val)
	case Fragments:
		return e.writeFragments(w, elem.Tag, v, val)
	}

	valBytes, err := encodeValue(elem.Value, v, e.order)
	if err != nil {
		return err
	}
	if len(valBytes)%2 != 0 {
		valBytes = append(valBytes, vr.VR(v).Padding())
	}
	if uint64(len(valBytes)) >= undefinedLength {
		return fmt.Errorf("value of %d bytes exceeds the maximum element length", len(valBytes))
	}
	if err := e.writeHeader(w, elem.Tag, v, uint32(len(valBytes))); err != nil {
		return err
	}
	w.Write(valBytes)
	return nil
}

func (e *encoder) writeSequence(w *bytes.Buffer, t Tag, items []*Dataset) error {
	var seq bytes.Buffer
	for _, item := range items {
		var body bytes.Buffer
		if err := e.writeBody(&body, item); err != nil {
			return fmt.Errorf("failed to encode sequence item: %w", err)
		}
		if e.opts.ItemPadding > 0 {
			if err := e.writePadding(&body, body.Len(), e.opts.ItemPadding); err != nil {
				return err
			}
		}
		if e.opts.SequenceLength == SequenceLengthExplicit {
			e.writeDelimiter(&seq, tag.Item, uint32(body.Len()))
			seq.Write(body.Bytes())
			continue
		}
		e.writeDelimiter(&seq, tag.Item, undefinedLength)
		seq.Write(body.Bytes())
		e.writeDelimiter(&seq, tag.ItemDelimitationItem, 0)
	}

	if e.opts.SequenceLength == SequenceLengthExplicit {
		if err := e.writeHeader(w, t, string(vr.SQ), uint32(seq.Len())); err != nil {
			return err
		}
		w.Write(seq.Bytes())
		return nil
	}
	if err := e.writeHeader(w, t, string(vr.SQ), undefinedLength); err != nil {
		return err
	}
	w.Write(seq.Bytes())
	e.writeDelimiter(w, tag.SequenceDelimitationItem, 0)
	return nil
}

// writeFragments writes an encapsulated value, which is always undefined length
func (e *encoder) writeFragments(w *bytes.Buffer, t Tag, v string, frags Fragments) error {
	if v != string(vr.OB) && v != string(vr.OW) {
		v = string(vr.OB)
	}
	if err := e.writeHeader(w, t, v, undefinedLength); err != nil {
		return err
	}
	for _, f := range frags {
		if len(f)%2 != 0 {
			f = append(f[:len(f):len(f)], 0x00)
		}
		e.writeDelimiter(w, tag.Item, uint32(len(f)))
		w.Write(f)
	}
	e.writeDelimiter(w, tag.SequenceDelimitationItem, 0)
	return nil
}

// encodeValue renders a Go value as the bytes of the given VR, unpadded
func encodeValue(v interface{}, vrName string, order binary.ByteOrder) ([]byte, error) {
	if v == nil {
		return []byte{}, nil
	}

	switch val := v.(type) {
	case string:
		return []byte(val), nil
	case []string:
		return []byte(strings.Join(val, `\`)), nil
	case []byte:
		return val, nil
	case uint16:
		b := make([]byte, 2)
		order.PutUint16(b, val)
		return b, nil
	case []uint16:
		b := make([]byte, len(val)*2)
		for i, u := range val {
			order.PutUint16(b[i*2:], u)
		}
		return b, nil
	case int16:
		b := make([]byte, 2)
		order.PutUint16(b, uint16(val))
		return b, nil
	case uint32:
		b := make([]byte, 4)
		order.PutUint32(b, val)
		return b, nil
	case []uint32:
		b := make([]byte, len(val)*4)
		for i, u := range val {
			order.PutUint32(b[i*4:], u)
		}
		return b, nil
	case int32:
		b := make([]byte, 4)
		order.PutUint32(b, uint32(val))
		return b, nil
	case int:
		// Map int to the VR size
		switch vrName {
		case "IS":
			return []byte(strconv.Itoa(val)), nil
		case "US", "SS":
			b := make([]byte, 2)
			order.PutUint16(b, uint16(val))
			return b, nil
		case "UL", "SL":
			b := make([]byte, 4)
			order.PutUint32(b, uint32(val))
			return b, nil
		}
		return nil, fmt.Errorf("int for VR %s not implemented", vrName)
	case float32:
		b := make([]byte, 4)
		order.PutUint32(b, math.Float32bits(val))
		return b, nil
	case float64:
		// If DS, encode as string. If FL/FD, binary.
		switch vrName {
		case "DS":
			return []byte(strconv.FormatFloat(val, 'g', -1, 64)), nil
		case "FD":
			b := make([]byte, 8)
			order.PutUint64(b, math.Float64bits(val))
			return b, nil
		case "FL":
			b := make([]byte, 4)
			order.PutUint32(b, math.Float32bits(float32(val)))
			return b, nil
		}
		return nil, fmt.Errorf("float64 for VR %s not implemented", vrName)
	case []float32:
		b := make([]byte, len(val)*4)
		for i, f := range val {
			order.PutUint32(b[i*4:], math.Float32bits(f))
		}
		return b, nil
	case []float64:
		b := make([]byte, len(val)*8)
		for i, f := range val {
			order.PutUint64(b[i*8:], math.Float64bits(f))
		}
		return b, nil
	}

	return nil, fmt.Errorf("unsupported value type %T for VR %s", v, vrName)
}

// CountingWriter tracks the number of bytes written through it
type CountingWriter struct {
	Count  atomic.Int64
	Writer io.Writer
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.Writer.Write(p)
	c.Count.Add(int64(n))
	return n, err
}
