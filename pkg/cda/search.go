package cda

import (
	"fmt"
	"slices"
	"strings"
)

// Separator joins several matches of one key into a single value
const Separator = `\\`

// SearchOption configures Search, SearchAll and Nodes
type SearchOption func(*searcher)

// SearchDepth overrides DefaultMaxDepth, normally with the limit the
// document was parsed under
func SearchDepth(n int) SearchOption {
	return func(s *searcher) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// Search returns every match of key joined with Separator in document order,
// and whether anything matched at all. A present but empty attribute is a
// match with an empty value.
func Search(root *Node, key SearchKey, opts ...SearchOption) (string, bool, error) {
	values, err := SearchAll(root, key, opts...)
	if err != nil {
		return "", false, err
	}
	if len(values) == 0 {
		return "", false, nil
	}
	return strings.Join(values, Separator), true, nil
}

// SearchAll returns the matches of key in depth-first pre-order
func SearchAll(root *Node, key SearchKey, opts ...SearchOption) ([]string, error) {
	var out []string
	err := search(root, key, opts, func(s *searcher, n *Node) {
		if v, ok := s.value(n); ok {
			out = append(out, v)
		}
	})
	return out, err
}

// Nodes returns the elements at the path of key in depth-first pre-order.
// The attribute of key is ignored.
func Nodes(root *Node, key SearchKey, opts ...SearchOption) ([]*Node, error) {
	var out []*Node
	err := search(root, key, opts, func(_ *searcher, n *Node) {
		out = append(out, n)
	})
	return out, err
}

func search(root *Node, key SearchKey, opts []SearchOption, visit func(*searcher, *Node)) error {
	if root == nil {
		return ErrMissingRoot
	}
	s := &searcher{key: key, maxDepth: DefaultMaxDepth, trail: make([]string, 0, 16), visit: visit}
	for _, opt := range opts {
		opt(s)
	}
	return s.walk(root, 0)
}

type searcher struct {
	key      SearchKey
	maxDepth int
	trail    []string
	visit    func(*searcher, *Node)
}

func (s *searcher) walk(n *Node, depth int) error {
	if depth >= s.maxDepth {
		return fmt.Errorf("%w: search passed %d levels", ErrTooDeep, s.maxDepth)
	}
	s.trail = append(s.trail[:depth], n.Name)
	if s.matches() {
		s.visit(s, n)
	}
	// anchored keys never match below their own depth
	if s.key.Anchored && (depth >= len(s.key.Path) || !s.prefixMatches()) {
		return nil
	}
	for _, c := range n.Children {
		if err := s.walk(c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *searcher) value(n *Node) (string, bool) {
	if s.key.Attr == "" {
		return n.Text, true
	}
	return n.Attr(s.key.Attr)
}

// matches compares the trail, root first, against the key path
func (s *searcher) matches() bool {
	path := s.key.Path
	if s.key.Anchored {
		return len(s.trail) == len(path)+1 && slices.Equal(s.trail[1:], path)
	}
	if len(s.trail) < len(path) {
		return false
	}
	return slices.Equal(s.trail[len(s.trail)-len(path):], path)
}

// prefixMatches reports whether the trail below the root is a prefix of an anchored path
func (s *searcher) prefixMatches() bool {
	below := s.trail[1:]
	return len(below) <= len(s.key.Path) && slices.Equal(below, s.key.Path[:len(below)])
}
