package dicom

import (
	"encoding/binary"
	"sort"
	"strconv"
	"strings"

	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
)

// Dataset represents a complete DICOM dataset
type Dataset struct {
	Elements map[Tag]*Element
}

// Element represents a single DICOM element
type Element struct {
	Tag   Tag
	VR    string      // Value Representation
	Value interface{} // Parsed value
}

// Tag alias to avoid duplication
type Tag = tag.Tag

// Fragments holds an undefined-length binary value split into items, the
// first item being the basic offset table.
type Fragments [][]byte

// NewEmptyDataset returns a dataset with no elements
func NewEmptyDataset() *Dataset {
	return &Dataset{Elements: make(map[Tag]*Element)}
}

// FindElement returns an element by tag
func (ds *Dataset) FindElement(group, element uint16) (*Element, bool) {
	elem, ok := ds.Elements[Tag{Group: group, Element: element}]
	return elem, ok
}

// Get returns an element by tag
func (ds *Dataset) Get(t Tag) (*Element, bool) {
	elem, ok := ds.Elements[t]
	return elem, ok
}

// Set replaces or inserts an element. An empty vr is resolved from the dictionary.
func (ds *Dataset) Set(t Tag, vr string, value interface{}) *Element {
	if ds.Elements == nil {
		ds.Elements = make(map[Tag]*Element)
	}
	if vr == "" {
		vr = tag.VROf(t)
	}
	elem := &Element{Tag: t, VR: vr, Value: value}
	ds.Elements[t] = elem
	return elem
}

// Delete removes an element if present
func (ds *Dataset) Delete(t Tag) {
	delete(ds.Elements, t)
}

// Len returns the number of top level elements
func (ds *Dataset) Len() int {
	return len(ds.Elements)
}

// SortedTags returns the tags of the dataset in encoding order
func (ds *Dataset) SortedTags() []Tag {
	keys := make([]Tag, 0, len(ds.Elements))
	for k := range ds.Elements {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// GetString returns the trimmed string value of a tag, or "" if missing or not a string
func (ds *Dataset) GetString(t Tag) string {
	if elem, ok := ds.Elements[t]; ok {
		if s, ok := elem.GetString(); ok {
			return strings.TrimRight(s, "\x00 ")
		}
	}
	return ""
}

// GetString returns a string value from an element. Multi-valued strings are
// joined with a backslash.
func (elem *Element) GetString() (string, bool) {
	switch v := elem.Value.(type) {
	case string:
		return v, true
	case []string:
		return strings.Join(v, `\`), true
	}
	return "", false
}

// GetStrings returns the individual values of a string element
func (elem *Element) GetStrings() ([]string, bool) {
	switch v := elem.Value.(type) {
	case string:
		if v == "" {
			return nil, true
		}
		return strings.Split(v, `\`), true
	case []string:
		return v, true
	}
	return nil, false
}

// GetUint16 returns a uint16 value from an element
func (elem *Element) GetUint16() (uint16, bool) {
	if u, ok := elem.Value.(uint16); ok {
		return u, true
	}
	return 0, false
}

// GetUint32 returns a uint32 value from an element
func (elem *Element) GetUint32() (uint32, bool) {
	if u, ok := elem.Value.(uint32); ok {
		return u, true
	}
	return 0, false
}

// GetInt returns an int value from an element
func (elem *Element) GetInt() (int, bool) {
	switch v := elem.Value.(type) {
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case int:
		return v, true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(strings.TrimRight(v, "\x00")))
		if err == nil {
			return i, true
		}
	case []byte:
		if len(v) == 2 {
			return int(binary.LittleEndian.Uint16(v)), true
		}
		if len(v) == 4 {
			return int(binary.LittleEndian.Uint32(v)), true
		}
	}
	return 0, false
}

// GetBytes returns the raw bytes of a binary element
func (elem *Element) GetBytes() ([]byte, bool) {
	if b, ok := elem.Value.([]byte); ok {
		return b, true
	}
	return nil, false
}

// GetItems returns the items of a sequence element
func (elem *Element) GetItems() ([]*Dataset, bool) {
	if items, ok := elem.Value.([]*Dataset); ok {
		return items, true
	}
	return nil, false
}

// GetSequenceItems returns the items of the sequence at t, or nil
func GetSequenceItems(ds *Dataset, t Tag) []*Dataset {
	if elem, ok := ds.Get(t); ok {
		if items, ok := elem.GetItems(); ok {
			return items
		}
	}
	return nil
}

// Clone returns a deep copy of the dataset, sequences included
func (ds *Dataset) Clone() *Dataset {
	out := NewEmptyDataset()
	for t, elem := range ds.Elements {
		cp := *elem
		switch v := elem.Value.(type) {
		case []*Dataset:
			items := make([]*Dataset, len(v))
			for i, item := range v {
				items[i] = item.Clone()
			}
			cp.Value = items
		case []byte:
			cp.Value = append([]byte(nil), v...)
		case []string:
			cp.Value = append([]string(nil), v...)
		}
		out.Elements[t] = &cp
	}
	return out
}
