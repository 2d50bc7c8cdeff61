package formview

import (
	"strconv"
	"strings"
)

// Step is one segment of a Path: either a field name or an array index.
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeyStep returns a field-name step.
func KeyStep(name string) Step { return Step{Key: name} }

// IndexStep returns an array-index step.
func IndexStep(i int) Step { return Step{Index: i, IsIndex: true} }

func (s Step) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path addresses a node in a data or schema tree. The zero value is the root.
type Path []Step

// Key returns a copy of p extended by a field step.
func (p Path) Key(name string) Path {
	return p.append(KeyStep(name))
}

// Index returns a copy of p extended by an index step.
func (p Path) Index(i int) Path {
	return p.append(IndexStep(i))
}

// Join returns a copy of p extended by all steps of other.
func (p Path) Join(other Path) Path {
	out := make(Path, 0, len(p)+len(other))
	out = append(out, p...)
	return append(out, other...)
}

func (p Path) append(s Step) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// Parent returns p without its last step. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// Last returns the final step.
func (p Path) Last() (Step, bool) {
	if len(p) == 0 {
		return Step{}, false
	}
	return p[len(p)-1], true
}

// LastKey returns the last field-name step, skipping trailing indexes.
func (p Path) LastKey() string {
	for i := len(p) - 1; i >= 0; i-- {
		if !p[i].IsIndex {
			return p[i].Key
		}
	}
	return ""
}

// HasPrefix reports whether prefix addresses p or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return prefix.Equal(p[:len(prefix)])
}

// Equal reports whether both paths address the same node.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i].String() != other[i].String() {
			return false
		}
	}
	return true
}

// Pointer renders p as a JSON pointer ("" for the root, "/a/3/b" otherwise).
func (p Path) Pointer() string {
	var b strings.Builder
	for _, s := range p {
		b.WriteByte('/')
		b.WriteString(escapePointer(s.String()))
	}
	return b.String()
}

// Dotted renders p as an accessor expression below root, e.g. "model.tags[3].name".
func (p Path) Dotted(root string) string {
	var b strings.Builder
	b.WriteString(root)
	for _, s := range p {
		if s.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.Index))
			b.WriteByte(']')
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Key)
	}
	return b.String()
}

func (p Path) String() string {
	return p.Pointer()
}

// ParsePointer parses a JSON pointer into key steps. Both "/a/b" and "a/b" are accepted;
// numeric segments stay keys and are resolved against arrays at lookup time.
func ParsePointer(pointer string) Path {
	parts := strings.Split(pointer, "/")
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		p = append(p, KeyStep(unescapePointer(part)))
	}
	return p
}

var (
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

func escapePointer(s string) string   { return pointerEscaper.Replace(s) }
func unescapePointer(s string) string { return pointerUnescaper.Replace(s) }

// Get resolves p against a data tree.
func (p Path) Get(root any) (any, bool) {
	cur := root
	for _, s := range p {
		next, ok := child(cur, s)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Set assigns value at p, creating intermediate objects for missing keys.
// It returns the (possibly replaced) root.
func (p Path) Set(root any, value any) (any, error) {
	if len(p) == 0 {
		return value, nil
	}
	if root == nil {
		root = map[string]any{}
	}
	cur := root
	for i, s := range p {
		last := i == len(p)-1
		switch node := cur.(type) {
		case map[string]any:
			if last {
				node[s.String()] = value
				return root, nil
			}
			next, ok := node[s.String()]
			if !ok || next == nil {
				next = map[string]any{}
				node[s.String()] = next
			}
			cur = next
		case Document:
			if last {
				node[s.String()] = value
				return root, nil
			}
			next, ok := node[s.String()]
			if !ok || next == nil {
				next = map[string]any{}
				node[s.String()] = next
			}
			cur = next
		case []any:
			idx, ok := s.index()
			if !ok || idx < 0 || idx >= len(node) {
				return root, NewModelMismatchError(p[:i+1].Pointer(), "array index")
			}
			if last {
				node[idx] = value
				return root, nil
			}
			if node[idx] == nil {
				node[idx] = map[string]any{}
			}
			cur = node[idx]
		default:
			return root, NewModelMismatchError(p[:i].Pointer(), "object")
		}
	}
	return root, nil
}

// Delete removes the key addressed by p from its parent object.
func (p Path) Delete(root any) bool {
	last, ok := p.Last()
	if !ok {
		return false
	}
	parent, ok := p.Parent().Get(root)
	if !ok {
		return false
	}
	switch node := parent.(type) {
	case map[string]any:
		_, had := node[last.String()]
		delete(node, last.String())
		return had
	case Document:
		_, had := node[last.String()]
		delete(node, last.String())
		return had
	}
	return false
}

func (s Step) index() (int, bool) {
	if s.IsIndex {
		return s.Index, true
	}
	i, err := strconv.Atoi(s.Key)
	return i, err == nil
}

func child(node any, s Step) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		v, ok := n[s.String()]
		return v, ok
	case Document:
		v, ok := n[s.String()]
		return v, ok
	case []any:
		idx, ok := s.index()
		if !ok || idx < 0 || idx >= len(n) {
			return nil, false
		}
		return n[idx], true
	}
	return nil, false
}

// JSONPointer looks up a pointer leniently: an empty pointer yields obj and any
// missing segment yields nil.
func JSONPointer(obj any, pointer string) any {
	v, ok := ParsePointer(pointer).Get(obj)
	if !ok {
		return nil
	}
	return v
}
