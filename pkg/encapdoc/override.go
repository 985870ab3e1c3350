package encapdoc

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jpfielding/encapdoc.go/pkg/dicom"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
	"github.com/jpfielding/encapdoc.go/pkg/dicom/vr"
)

// index values of a PathSegment
const (
	noIndex  = -1
	allItems = -2
)

// PathSegment is one step of an override path: an attribute and, for
// sequences, the item index it descends into.
type PathSegment struct {
	Tag     tag.Tag
	Keyword string
	VR      string
	// Index is the item number, noIndex without brackets, allItems for [*]
	Index int
}

func (s PathSegment) String() string {
	name := s.Keyword
	if name == "" {
		name = s.Tag.String()
	}
	switch s.Index {
	case noIndex:
		return name
	case allItems:
		return name + "[*]"
	}
	return name + "[" + strconv.Itoa(s.Index) + "]"
}

// OverrideKey is a parsed "path" or "path=value" override. Overrides are
// applied last and bypass every check of the header builder.
type OverrideKey struct {
	Raw      string
	Path     []PathSegment
	Value    string
	HasValue bool
}

func (k OverrideKey) String() string {
	return k.Raw
}

// ParseOverride parses path[=value], where path is segment{.segment} and a
// segment is a keyword, (gggg,eeee) or gggg,eeee with an optional [n] or [*].
func ParseOverride(s string) (OverrideKey, error) {
	k := OverrideKey{Raw: s}
	path := s
	if i := strings.IndexByte(s, '='); i >= 0 {
		path, k.Value, k.HasValue = s[:i], s[i+1:], true
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return k, errors.Wrapf(ErrUsage, "override %q has no attribute", s)
	}
	parts := strings.Split(path, ".")
	for i, p := range parts {
		seg, err := parseSegment(p)
		if err != nil {
			return k, errors.Wrapf(err, "override %q", s)
		}
		last := i == len(parts)-1
		if !last {
			if seg.VR != string(vr.SQ) {
				return k, errors.Wrapf(ErrUsage, "override %q: %s is not a sequence", s, seg)
			}
			if seg.Index == noIndex {
				return k, errors.WithHint(
					errors.Wrapf(ErrUsage, "override %q: %s needs an item index", s, seg),
					"write Sequence[0].Attribute or Sequence[*].Attribute")
			}
		}
		if last && seg.VR == string(vr.SQ) && k.HasValue {
			return k, errors.Wrapf(ErrUsage, "override %q: sequence %s cannot take a value", s, seg)
		}
		if last && seg.VR != string(vr.SQ) && seg.Index != noIndex {
			return k, errors.Wrapf(ErrUsage, "override %q: %s is not a sequence", s, seg)
		}
		k.Path = append(k.Path, seg)
	}
	if k.HasValue {
		if _, err := convertValue(k.Path[len(k.Path)-1].VR, k.Value); err != nil {
			return k, errors.Wrapf(err, "override %q", s)
		}
	}
	return k, nil
}

// ParseOverrides parses every key, keeping their order
func ParseOverrides(raw []string) ([]OverrideKey, error) {
	keys := make([]OverrideKey, 0, len(raw))
	for _, s := range raw {
		k, err := ParseOverride(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func parseSegment(p string) (PathSegment, error) {
	seg := PathSegment{Index: noIndex}
	name := strings.TrimSpace(p)
	if open := strings.IndexByte(name, '['); open >= 0 {
		if !strings.HasSuffix(name, "]") {
			return seg, errors.Wrapf(ErrUsage, "unterminated index in %q", p)
		}
		idx := name[open+1 : len(name)-1]
		name = name[:open]
		if idx == "*" {
			seg.Index = allItems
		} else {
			n, err := strconv.Atoi(idx)
			if err != nil || n < 0 {
				return seg, errors.Wrapf(ErrUsage, "bad item index %q in %q", idx, p)
			}
			seg.Index = n
		}
	}
	if name == "" {
		return seg, errors.Wrapf(ErrUsage, "empty path segment in %q", p)
	}
	entry, err := tag.Resolve(name)
	if err != nil {
		return seg, mark(err, ErrUnknownAttribute, "resolving %q", name)
	}
	seg.Tag, seg.Keyword, seg.VR = entry.Tag, entry.Keyword, entry.VR
	return seg, nil
}

// ApplyOverrides applies keys to ds in order
func ApplyOverrides(ds *dicom.Dataset, keys []OverrideKey) error {
	for _, k := range keys {
		if err := k.Apply(ds); err != nil {
			return err
		}
	}
	return nil
}

// Apply sets, replaces or empties the attribute at the key's path, creating
// missing items up to an explicit index. [*] only visits existing items.
func (k OverrideKey) Apply(ds *dicom.Dataset) error {
	if len(k.Path) == 0 {
		return errors.Wrapf(ErrUsage, "override %q has no attribute", k.Raw)
	}
	return k.apply(ds, k.Path)
}

func (k OverrideKey) apply(ds *dicom.Dataset, path []PathSegment) error {
	seg := path[0]
	if len(path) == 1 && seg.Index == noIndex {
		value, err := k.leafValue(seg)
		if err != nil {
			return err
		}
		ds.Set(seg.Tag, seg.VR, value)
		return nil
	}

	items := dicom.GetSequenceItems(ds, seg.Tag)
	var targets []*dicom.Dataset
	if seg.Index == allItems {
		targets = items
	} else {
		for len(items) <= seg.Index {
			items = append(items, dicom.NewEmptyDataset())
		}
		targets = items[seg.Index : seg.Index+1]
	}
	if items == nil {
		items = []*dicom.Dataset{}
	}
	ds.Set(seg.Tag, string(vr.SQ), items)
	if len(path) == 1 {
		return nil
	}
	for _, item := range targets {
		if err := k.apply(item, path[1:]); err != nil {
			return err
		}
	}
	return nil
}

func (k OverrideKey) leafValue(seg PathSegment) (interface{}, error) {
	if seg.VR == string(vr.SQ) {
		return []*dicom.Dataset{}, nil
	}
	if !k.HasValue {
		if vr.VR(seg.VR).IsString() {
			return "", nil
		}
		return []byte{}, nil
	}
	v, err := convertValue(seg.VR, k.Value)
	if err != nil {
		return nil, errors.Wrapf(err, "override %q", k.Raw)
	}
	return v, nil
}

// convertValue turns override text into the Go value the codec encodes for
// v. Backslash separates multiple numeric values.
func convertValue(v, text string) (interface{}, error) {
	if vr.VR(v).IsString() {
		return text, nil
	}
	fields := strings.Split(text, `\`)
	switch vr.VR(v) {
	case vr.US, vr.SS:
		signed := vr.VR(v) == vr.SS
		out := make([]uint16, len(fields))
		for i, f := range fields {
			n, err := parseInt(f, 16, signed)
			if err != nil {
				return nil, err
			}
			out[i] = uint16(n)
		}
		if len(out) == 1 {
			if signed {
				return int16(out[0]), nil
			}
			return out[0], nil
		}
		return out, nil
	case vr.UL, vr.SL:
		signed := vr.VR(v) == vr.SL
		out := make([]uint32, len(fields))
		for i, f := range fields {
			n, err := parseInt(f, 32, signed)
			if err != nil {
				return nil, err
			}
			out[i] = uint32(n)
		}
		if len(out) == 1 {
			if signed {
				return int32(out[0]), nil
			}
			return out[0], nil
		}
		return out, nil
	case vr.FL:
		out := make([]float32, len(fields))
		for i, f := range fields {
			x, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
			if err != nil {
				return nil, errors.Wrapf(ErrUsage, "%q is not a float", f)
			}
			out[i] = float32(x)
		}
		if len(out) == 1 {
			return out[0], nil
		}
		return out, nil
	case vr.FD:
		out := make([]float64, len(fields))
		for i, f := range fields {
			x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, errors.Wrapf(ErrUsage, "%q is not a double", f)
			}
			out[i] = x
		}
		if len(out) == 1 {
			return out[0], nil
		}
		return out, nil
	}
	return []byte(text), nil
}

// parseInt returns the value's bit pattern, range checked for its signedness
func parseInt(s string, bits int, signed bool) (uint64, error) {
	s = strings.TrimSpace(s)
	if signed {
		n, err := strconv.ParseInt(s, 10, bits)
		if err != nil {
			return 0, errors.Wrapf(ErrUsage, "%q is not a %d bit signed integer", s, bits)
		}
		return uint64(n), nil
	}
	n, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, errors.Wrapf(ErrUsage, "%q is not a %d bit unsigned integer", s, bits)
	}
	return n, nil
}
