package dicom

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/transfer"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/vr"
	"github.com/klauspost/compress/flate"
)

const (
	undefinedLength = 0xFFFFFFFF
	maxNesting      = 64
)

// ErrNotDICOM is returned when the input lacks the preamble and DICM magic
var ErrNotDICOM = errors.New("invalid DICOM file: missing DICM magic")

// Reader reads DICOM Part 10 files
type Reader struct {
	r              *bufio.Reader
	transferSyntax transfer.Syntax
}

// NewReader creates a new DICOM reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Parse reads a complete DICOM file
func Parse(r io.Reader) (*Dataset, error) {
	reader := NewReader(r)
	return reader.ReadDataset()
}

// ReadFile reads a DICOM file from disk
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// ReadBuffer parses a DICOM file held in memory
func ReadBuffer(data []byte) (*Dataset, error) {
	return Parse(bytes.NewReader(data))
}

// TransferSyntax returns the syntax found in the file meta, valid after ReadDataset
func (r *Reader) TransferSyntax() transfer.Syntax {
	return r.transferSyntax
}

// ReadDataset reads the complete dataset. The file meta group is always
// explicit VR little endian, the rest follows the declared transfer syntax.
func (r *Reader) ReadDataset() (*Dataset, error) {
	preamble := make([]byte, 132)
	if _, err := io.ReadFull(r.r, preamble); err != nil {
		return nil, fmt.Errorf("failed to read preamble: %w", err)
	}
	if string(preamble[128:]) != "DICM" {
		return nil, ErrNotDICOM
	}

	ds := NewEmptyDataset()
	meta := &decoder{r: r.r, explicitVR: true, order: binary.LittleEndian}
	for {
		peek, err := r.r.Peek(2)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read tag: %w", err)
		}
		if binary.LittleEndian.Uint16(peek) != 0x0002 {
			break
		}
		t, err := meta.readTag()
		if err != nil {
			return nil, fmt.Errorf("failed to read tag: %w", err)
		}
		elem, err := meta.readElement(t)
		if err != nil {
			return nil, fmt.Errorf("failed to read element %v: %w", t, err)
		}
		ds.Elements[t] = elem
	}

	// Default to Implicit VR if no transfer syntax was declared
	r.transferSyntax = transfer.ImplicitVRLittleEndian
	if ts := ds.GetString(tag.TransferSyntaxUID); ts != "" {
		r.transferSyntax = transfer.FromUID(ts)
	}
	if !r.transferSyntax.Supported() {
		return nil, fmt.Errorf("unsupported transfer syntax %s", r.transferSyntax)
	}

	var body io.Reader = r.r
	if r.transferSyntax.IsDeflated() {
		fr := flate.NewReader(r.r)
		defer fr.Close()
		body = fr
	}
	d := &decoder{
		r:          body,
		explicitVR: r.transferSyntax.IsExplicitVR(),
		order:      r.transferSyntax.ByteOrder(),
	}
	if err := d.readInto(ds, false); err != nil {
		return nil, err
	}
	return ds, nil
}

// ParseDataset reads a bare dataset, written without preamble and file meta,
// in the transfer syntax ts
func ParseDataset(r io.Reader, ts transfer.Syntax) (*Dataset, error) {
	if !ts.Supported() {
		return nil, fmt.Errorf("unsupported transfer syntax %s", ts)
	}
	body := r
	if ts.IsDeflated() {
		fr := flate.NewReader(r)
		defer fr.Close()
		body = fr
	}
	d := &decoder{r: bufio.NewReader(body), explicitVR: ts.IsExplicitVR(), order: ts.ByteOrder()}
	ds := NewEmptyDataset()
	if err := d.readInto(ds, false); err != nil {
		return nil, err
	}
	return ds, nil
}

// decoder reads elements in a single encoding from a stream
type decoder struct {
	r          io.Reader
	explicitVR bool
	order      binary.ByteOrder
	depth      int
}

func (d *decoder) child(data []byte) *decoder {
	return &decoder{r: bytes.NewReader(data), explicitVR: d.explicitVR, order: d.order, depth: d.depth + 1}
}

// readInto reads elements until EOF, or until an item delimiter when inItem is set
func (d *decoder) readInto(ds *Dataset, inItem bool) error {
	for {
		t, err := d.readTag()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tag: %w", err)
		}
		switch t {
		case tag.ItemDelimitationItem:
			if _, err := d.readUint32(); err != nil {
				return err
			}
			if inItem {
				return nil
			}
			continue
		case tag.SequenceDelimitationItem, tag.Item:
			return fmt.Errorf("unexpected delimiter %v in dataset", t)
		}
		elem, err := d.readElement(t)
		if err != nil {
			return fmt.Errorf("failed to read element %v: %w", t, err)
		}
		ds.Elements[t] = elem
	}
}

// readTag reads a DICOM tag
func (d *decoder) readTag() (Tag, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return Tag{}, err
	}
	return Tag{Group: d.order.Uint16(buf[0:]), Element: d.order.Uint16(buf[2:])}, nil
}

func (d *decoder) readUint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return d.order.Uint32(buf[:]), nil
}

// readElement reads a DICOM element after the tag has been read
func (d *decoder) readElement(t Tag) (*Element, error) {
	var v string
	var vl uint32

	if d.explicitVR {
		var hdr [4]byte
		if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
			return nil, err
		}
		v = string(hdr[:2])
		if vr.VR(v).IsLong() {
			// 2 reserved bytes already consumed in hdr[2:], VL is 4 bytes
			n, err := d.readUint32()
			if err != nil {
				return nil, err
			}
			vl = n
		} else {
			vl = uint32(d.order.Uint16(hdr[2:]))
		}
	} else {
		n, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		vl = n
		v = tag.VROf(t)
		// undefined length UN in implicit VR is a sequence
		if vl == undefinedLength && v == string(vr.UN) {
			v = string(vr.SQ)
		}
	}

	value, err := d.readValue(t, v, vl)
	if err != nil {
		return nil, err
	}
	return &Element{Tag: t, VR: v, Value: value}, nil
}

func (d *decoder) readValue(t Tag, v string, vl uint32) (interface{}, error) {
	if v == string(vr.SQ) {
		return d.readSequence(vl)
	}
	if vl == undefinedLength {
		if v == string(vr.UN) {
			return d.readSequence(vl)
		}
		return d.readFragments()
	}
	data, err := d.readN(vl)
	if err != nil {
		return nil, err
	}
	return parseValue(v, data, d.order), nil
}

// readN reads exactly n bytes, growing the buffer as data arrives rather than
// trusting the declared length up front.
func (d *decoder) readN(n uint32) ([]byte, error) {
	var buf bytes.Buffer
	got, err := io.Copy(&buf, io.LimitReader(d.r, int64(n)))
	if err != nil {
		return nil, err
	}
	if got != int64(n) {
		return nil, fmt.Errorf("value truncated: want %d bytes, got %d: %w", n, got, io.ErrUnexpectedEOF)
	}
	return buf.Bytes(), nil
}

func (d *decoder) readSequence(vl uint32) ([]*Dataset, error) {
	if d.depth >= maxNesting {
		return nil, fmt.Errorf("sequence nesting exceeds %d levels", maxNesting)
	}
	items := []*Dataset{}
	if vl != undefinedLength {
		data, err := d.readN(vl)
		if err != nil {
			return nil, err
		}
		sub := d.child(data)
		for {
			t, err := sub.readTag()
			if err == io.EOF {
				return items, nil
			}
			if err != nil {
				return nil, err
			}
			if t != tag.Item {
				return nil, fmt.Errorf("expected item tag, got %v", t)
			}
			item, err := sub.readItem()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	for {
		t, err := d.readTag()
		if err != nil {
			return nil, fmt.Errorf("reading sequence item tag: %w", err)
		}
		switch t {
		case tag.SequenceDelimitationItem:
			if _, err := d.readUint32(); err != nil {
				return nil, err
			}
			return items, nil
		case tag.Item:
			item, err := d.readItem()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		default:
			return nil, fmt.Errorf("expected item tag, got %v", t)
		}
	}
}

// readItem reads one item after its tag has been consumed
func (d *decoder) readItem() (*Dataset, error) {
	n, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	item := NewEmptyDataset()
	if n == undefinedLength {
		nested := &decoder{r: d.r, explicitVR: d.explicitVR, order: d.order, depth: d.depth + 1}
		if err := nested.readInto(item, true); err != nil {
			return nil, err
		}
		return item, nil
	}
	data, err := d.readN(n)
	if err != nil {
		return nil, err
	}
	if err := d.child(data).readInto(item, false); err != nil {
		return nil, err
	}
	return item, nil
}

// readFragments reads an encapsulated value: items until the sequence delimiter
func (d *decoder) readFragments() (Fragments, error) {
	var frags Fragments
	for {
		t, err := d.readTag()
		if err != nil {
			return nil, err
		}
		n, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		switch t {
		case tag.SequenceDelimitationItem:
			return frags, nil
		case tag.Item:
			data, err := d.readN(n)
			if err != nil {
				return nil, err
			}
			frags = append(frags, data)
		default:
			return nil, fmt.Errorf("expected fragment item tag, got %v", t)
		}
	}
}

// parseValue converts raw bytes to typed value based on VR
func parseValue(v string, data []byte, order binary.ByteOrder) interface{} {
	switch v {
	case "AE", "AS", "CS", "DA", "DS", "DT", "IS", "LO", "LT", "PN", "SH", "ST", "TM", "UC", "UI", "UR", "UT":
		// String types - trim null padding
		s := string(data)
		for len(s) > 0 && (s[len(s)-1] == 0 || s[len(s)-1] == ' ') {
			s = s[:len(s)-1]
		}
		return s
	case "US":
		if len(data) == 2 {
			return order.Uint16(data)
		}
		values := make([]uint16, len(data)/2)
		for i := range values {
			values[i] = order.Uint16(data[i*2:])
		}
		return values
	case "UL":
		if len(data) == 4 {
			return order.Uint32(data)
		}
		values := make([]uint32, len(data)/4)
		for i := range values {
			values[i] = order.Uint32(data[i*4:])
		}
		return values
	case "SS":
		if len(data) == 2 {
			return int16(order.Uint16(data))
		}
	case "SL":
		if len(data) == 4 {
			return int32(order.Uint32(data))
		}
	case "FL":
		if len(data) == 4 {
			return math.Float32frombits(order.Uint32(data))
		}
	case "FD":
		if len(data) == 8 {
			return math.Float64frombits(order.Uint64(data))
		}
	}
	return data
}
