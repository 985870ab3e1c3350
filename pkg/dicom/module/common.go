package module

import (
	"fmt"
	"strings"
	"time"

	"github.com/jpfielding/encapdoc.go/pkg/dicom/tag"
)

// Date represents a DICOM Date (DA VR). The zero Date renders empty.
type Date struct {
	Year  int
	Month int
	Day   int
}

func (d Date) String() string {
	if d == (Date{}) {
		return ""
	}
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

func NewDate(t time.Time) Date {
	return Date{
		Year:  t.Year(),
		Month: int(t.Month()),
		Day:   t.Day(),
	}
}

// Time represents a DICOM Time (TM VR). The zero Time renders empty.
type Time struct {
	Hour   int
	Minute int
	Second int
	Nano   int
	set    bool
}

func (t Time) String() string {
	if !t.set {
		return ""
	}
	// Format as HHMMSS.FFFFFF
	return fmt.Sprintf("%02d%02d%02d.%06d", t.Hour, t.Minute, t.Second, t.Nano/1000)
}

func NewTime(t time.Time) Time {
	return Time{
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
		Nano:   t.Nanosecond(),
		set:    true,
	}
}

// PersonName represents a DICOM Person Name (PN VR)
type PersonName struct {
	FamilyName string
	GivenName  string
	MiddleName string
	Prefix     string
	Suffix     string
}

// String renders Family^Given^Middle^Prefix^Suffix without trailing empty components
func (p PersonName) String() string {
	parts := []string{p.FamilyName, p.GivenName, p.MiddleName, p.Prefix, p.Suffix}
	return strings.TrimRight(strings.Join(parts, "^"), "^")
}

// CodeItem is the Code Sequence Macro: one item of a code sequence
type CodeItem struct {
	CodeValue              string
	CodingSchemeDesignator string
	CodingSchemeVersion    string
	CodeMeaning            string
}

// IsZero reports whether no code value is set
func (c CodeItem) IsZero() bool {
	return c.CodeValue == "" && c.CodingSchemeDesignator == "" && c.CodeMeaning == ""
}

func (c CodeItem) ToTags() []IODElement {
	elements := []IODElement{
		{Tag: tag.CodeValue, Value: c.CodeValue},
		{Tag: tag.CodingSchemeDesignator, Value: c.CodingSchemeDesignator},
	}
	if c.CodingSchemeVersion != "" {
		elements = append(elements, IODElement{Tag: tag.CodingSchemeVersion, Value: c.CodingSchemeVersion})
	}
	return append(elements, IODElement{Tag: tag.CodeMeaning, Value: c.CodeMeaning})
}

// Common module interfaces
type IODModule interface {
	ToTags() []IODElement
}

// IODElement is one attribute of a module. A Value of type [][]IODElement
// is a sequence, one slice per item.
type IODElement struct {
	Tag   tag.Tag
	Value interface{}
}
