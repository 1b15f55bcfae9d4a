// Package keyvalues implements the ordered, nested key/value block format
// that carries level documents, rule packs and template libraries. Blocks
// preserve declaration order and permit repeated keys at every level, which
// is why this is not representable as YAML or TOML.
package keyvalues

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var (
	ErrUnclosedBlock  = errors.New("unclosed block")
	ErrUnexpectedBrace = errors.New("unexpected closing brace")
	ErrDanglingKey    = errors.New("key without value or block")
	ErrUnclosedQuote  = errors.New("unclosed quoted string")
)

// KV is one node: either a leaf (Key + Value) or a block (Key + Children).
// A block with no children is still a block if it was written with braces.
type KV struct {
	Key      string
	Value    string
	Children []*KV
	block    bool
}

// NewBlock returns an empty block node.
func NewBlock(key string, children ...*KV) *KV {
	return &KV{Key: key, Children: children, block: true}
}

// NewLeaf returns a key/value leaf.
func NewLeaf(key, value string) *KV {
	return &KV{Key: key, Value: value}
}

// IsBlock reports whether the node holds children rather than a value.
func (kv *KV) IsBlock() bool {
	return kv != nil && kv.block
}

// Find returns the first child whose key matches, case-insensitively.
func (kv *KV) Find(key string) *KV {
	if kv == nil {
		return nil
	}
	for _, c := range kv.Children {
		if strings.EqualFold(c.Key, key) {
			return c
		}
	}
	return nil
}

// FindAll returns every child whose key matches, in declaration order.
func (kv *KV) FindAll(key string) []*KV {
	if kv == nil {
		return nil
	}
	var out []*KV
	for _, c := range kv.Children {
		if strings.EqualFold(c.Key, key) {
			out = append(out, c)
		}
	}
	return out
}

// Str returns the value of the first matching leaf child, or def.
func (kv *KV) Str(key, def string) string {
	c := kv.Find(key)
	if c == nil || c.block {
		return def
	}
	return c.Value
}

// Int returns the first matching leaf child parsed as an integer, or def.
func (kv *KV) Int(key string, def int) int {
	c := kv.Find(key)
	if c == nil || c.block {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(c.Value))
	if err != nil {
		return def
	}
	return n
}

// Float returns the first matching leaf child parsed as a float, or def.
func (kv *KV) Float(key string, def float64) float64 {
	c := kv.Find(key)
	if c == nil || c.block {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return def
	}
	return f
}

// Bool returns the first matching leaf child as a boolean. Accepted true
// spellings are 1, true, yes, on; false are 0, false, no, off.
func (kv *KV) Bool(key string, def bool) bool {
	c := kv.Find(key)
	if c == nil || c.block {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(c.Value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// Add appends a child and marks the node as a block.
func (kv *KV) Add(child *KV) {
	kv.Children = append(kv.Children, child)
	kv.block = true
}

// ParseFile reads and parses path. The returned root is an unnamed block
// holding every top-level node.
func ParseFile(path string) (*KV, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	root, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// Parse parses a document into an unnamed root block.
func Parse(data []byte) (*KV, error) {
	lx := &lexer{src: string(data), line: 1}
	root := NewBlock("")
	if err := parseInto(lx, root, true); err != nil {
		return nil, err
	}
	return root, nil
}

func parseInto(lx *lexer, parent *KV, toplevel bool) error {
	for {
		tok, err := lx.next()
		if err != nil {
			return err
		}
		switch tok.kind {
		case tokEOF:
			if !toplevel {
				return fmt.Errorf("line %d: %w", lx.line, ErrUnclosedBlock)
			}
			return nil
		case tokClose:
			if toplevel {
				return fmt.Errorf("line %d: %w", tok.line, ErrUnexpectedBrace)
			}
			return nil
		case tokOpen:
			return fmt.Errorf("line %d: block without a key", tok.line)
		}

		// tok is a key; the next token decides leaf vs block. A leaf value
		// must share the key's line, a brace may open on the next line.
		next, err := lx.next()
		if err != nil {
			return err
		}
		switch {
		case next.kind == tokOpen:
			child := NewBlock(tok.text)
			if err := parseInto(lx, child, false); err != nil {
				return err
			}
			parent.Add(child)
		case next.kind == tokString && next.line == tok.line:
			parent.Add(NewLeaf(tok.text, next.text))
		default:
			return fmt.Errorf("line %d: %q: %w", tok.line, tok.text, ErrDanglingKey)
		}
	}
}
