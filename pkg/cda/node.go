// Package cda parses HL7 CDA documents into a small element tree and
// searches it for the attributes carried into DICOM headers.
package cda

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// RootElement is the mandatory document element of a CDA document
const RootElement = "ClinicalDocument"

// DefaultMaxDepth bounds element nesting while parsing and searching
const DefaultMaxDepth = 256

var (
	ErrSyntax      = errors.New("markup syntax error")
	ErrTooDeep     = errors.New("markup nesting exceeds depth limit")
	ErrMissingRoot = errors.New("markup has no root element")
)

// Node is one element of a parsed document. Names are local names,
// namespaces are dropped.
type Node struct {
	Name     string
	Attrs    map[string]string
	Children []*Node
	Text     string
}

// Attr returns the attribute value and whether the attribute is present
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

type parser struct {
	maxDepth int
}

// ParseOption configures Parse
type ParseOption func(*parser)

// WithMaxDepth overrides DefaultMaxDepth
func WithMaxDepth(n int) ParseOption {
	return func(p *parser) {
		p.maxDepth = n
	}
}

// ParseFile parses the document at path
func ParseFile(path string, opts ...ParseOption) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, opts...)
}

// Parse reads a whole document and returns its root element
func Parse(r io.Reader, opts ...ParseOption) (*Node, error) {
	p := &parser{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}

	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var root *Node
	var stack []*Node
	var text []*strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) >= p.maxDepth {
				return nil, fmt.Errorf("%w: more than %d levels at <%s>", ErrTooDeep, p.maxDepth, t.Name.Local)
			}
			n := &Node{Name: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				n.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: second root element <%s>", ErrSyntax, n.Name)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		}
	}
	if root == nil {
		return nil, ErrMissingRoot
	}
	return root, nil
}

// charsetReader decodes declared encodings other than UTF-8
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
