package dicom

import (
	"encoding/json"
	"fmt"
	"strings"
)

// String returns a string representation of the Element
func (e *Element) String() string {
	// Format: [Tag] [VR] (Name) ... : Value
	tagName := e.Tag.LookupName()
	if tagName != "" {
		tagName = " " + tagName
	}

	valStr := ""
	switch v := e.Value.(type) {
	case []*Dataset:
		valStr = fmt.Sprintf("Sequence (%d items)", len(v))
	case Fragments:
		valStr = fmt.Sprintf("Encapsulated (%d fragments)", len(v))
	case []uint16:
		if len(v) > 10 {
			valStr = fmt.Sprintf("Array of %d params", len(v))
		} else {
			valStr = fmt.Sprintf("%v", v)
		}
	case []byte:
		if len(v) > 20 {
			valStr = fmt.Sprintf("Binary Data (%d bytes)", len(v))
		} else {
			valStr = fmt.Sprintf("%v", v)
		}
	default:
		valStr = fmt.Sprintf("%v", v)
	}

	return fmt.Sprintf("[%s] %s%s: %s", e.Tag, e.VR, tagName, valStr)
}

// elementView is the serialised form shared by JSON and YAML output
type elementView struct {
	Tag   string      `json:"tag" yaml:"tag"`
	Name  string      `json:"name,omitempty" yaml:"name,omitempty"`
	VR    string      `json:"vr" yaml:"vr"`
	Value interface{} `json:"value" yaml:"value"`
}

func (e *Element) view() elementView {
	value := e.Value
	switch v := e.Value.(type) {
	case []byte:
		if len(v) > 64 {
			value = fmt.Sprintf("<%d bytes>", len(v))
		}
	case Fragments:
		value = fmt.Sprintf("<%d fragments>", len(v))
	case []*Dataset:
		items := make([][]elementView, len(v))
		for i, item := range v {
			items[i] = item.views()
		}
		value = items
	}
	return elementView{Tag: e.Tag.String(), Name: e.Tag.LookupName(), VR: e.VR, Value: value}
}

func (ds *Dataset) views() []elementView {
	out := make([]elementView, 0, len(ds.Elements))
	for _, k := range ds.SortedTags() {
		out = append(out, ds.Elements[k].view())
	}
	return out
}

// MarshalJSON returns a JSON representation of the Element
func (e *Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.view())
}

// MarshalYAML renders the element like MarshalJSON
func (e *Element) MarshalYAML() (interface{}, error) {
	return e.view(), nil
}

// String returns a string representation of the Dataset
func (ds *Dataset) String() string {
	if ds == nil {
		return "<nil>"
	}
	var b strings.Builder
	ds.writeIndented(&b, "")
	return b.String()
}

func (ds *Dataset) writeIndented(b *strings.Builder, indent string) {
	for _, k := range ds.SortedTags() {
		elem := ds.Elements[k]
		b.WriteString(indent)
		b.WriteString(elem.String())
		b.WriteString("\n")
		if items, ok := elem.GetItems(); ok {
			for i, item := range items {
				fmt.Fprintf(b, "%s  > Item %d\n", indent, i+1)
				item.writeIndented(b, indent+"    ")
			}
		}
	}
}

// MarshalJSON returns a JSON representation of the Dataset
// It returns a sorted array of Elements instead of a Map
func (ds *Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(ds.views())
}

// MarshalYAML renders the dataset as a sorted list of elements
func (ds *Dataset) MarshalYAML() (interface{}, error) {
	return ds.views(), nil
}
