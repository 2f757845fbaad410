// Package table implements UnDAG's variable environment: a rooted tree of
// namespaces ("tables") addressed by "/"-separated names, with a cursor
// identifying the table that reads and writes are resolved against.
//
// Lookup is exact — unlike a lexically-scoped Environment, a table never
// climbs to a parent table to resolve a missing name. Ascent only happens
// explicitly, via Exit, and only moves the cursor; it never resolves a
// name on its own.
package table

import "fmt"

// Table is one namespace node. Its parent link exists only so Exit can
// move the cursor outward; lookup never consults it.
type Table struct {
	values map[string]Value
	parent *Table
}

// Value is any binding a Table can hold: a scalar (value.Value, left
// untyped here to avoid a dependency cycle) or a nested *Table, the shape
// "enter" and "chars" both produce.
type Value interface{}

// New creates a fresh root table.
func New() *Table {
	return &Table{values: make(map[string]Value)}
}

// Parent exposes the table's parent, nil at the root.
func (t *Table) Parent() *Table {
	return t.parent
}

// Enter moves into (creating if absent) the named child namespace and
// returns it as the new cursor. An existing scalar binding under name is
// an error: enter only ever addresses namespaces.
func (t *Table) Enter(name string) (*Table, error) {
	existing, ok := t.values[name]
	if !ok {
		child := &Table{values: make(map[string]Value), parent: t}
		t.values[name] = child
		return child, nil
	}
	child, ok := existing.(*Table)
	if !ok {
		return nil, fmt.Errorf("tried to enter %q, which holds a scalar, not a table", name)
	}
	return child, nil
}

// Exit returns the parent table, or an error if t is already the root.
func (t *Table) Exit() (*Table, error) {
	if t.parent == nil {
		return nil, fmt.Errorf("exit: already at the root table")
	}
	return t.parent, nil
}

// Set assigns name (a "/"-separated path relative to t) to val, creating
// intermediate sub-tables as needed. It fails only if name is empty or an
// intermediate segment already holds a scalar rather than a namespace.
func (t *Table) Set(name string, val Value) error {
	cur, tail, err := t.descend(name, true)
	if err != nil {
		return err
	}
	cur.values[tail] = val
	return nil
}

// Get resolves name relative to t, descending through sub-tables for each
// "/"-separated segment. It fails if any segment is undefined or if an
// intermediate segment names a scalar instead of a namespace.
func (t *Table) Get(name string) (Value, error) {
	cur, tail, err := t.descend(name, false)
	if err != nil {
		return nil, err
	}
	v, ok := cur.values[tail]
	if !ok {
		return nil, fmt.Errorf("undefined variable %q", name)
	}
	return v, nil
}

// Exists reports whether name resolves to a binding, without erroring when
// it does not.
func (t *Table) Exists(name string) bool {
	cur, tail, err := t.descend(name, false)
	if err != nil {
		return false
	}
	_, ok := cur.values[tail]
	return ok
}

// Delete removes name if present; it is not an error if name is absent.
func (t *Table) Delete(name string) {
	cur, tail, err := t.descend(name, false)
	if err != nil {
		return
	}
	delete(cur.values, tail)
}

// Fresh creates a brand-new, empty sub-table at name, replacing whatever
// was previously bound there (scalar or table), and returns it. chars
// (spec §4.4) uses this: it always starts from an empty namespace rather
// than reusing one left behind by an earlier call.
func (t *Table) Fresh(name string) (*Table, error) {
	cur, tail, err := t.descend(name, true)
	if err != nil {
		return nil, err
	}
	child := &Table{values: make(map[string]Value), parent: cur}
	cur.values[tail] = child
	return child, nil
}

// SubTable returns the nested Table stored at name, if any.
func (t *Table) SubTable(name string) (*Table, bool) {
	v, err := t.Get(name)
	if err != nil {
		return nil, false
	}
	sub, ok := v.(*Table)
	return sub, ok
}

// descend walks every "/"-separated segment of name except the last,
// creating intermediate tables when create is true. It returns the table
// the final segment lives in and that final segment name.
func (t *Table) descend(name string, create bool) (*Table, string, error) {
	segs := splitPath(name)
	if len(segs) == 0 {
		return nil, "", fmt.Errorf("empty variable name")
	}
	cur := t
	for _, seg := range segs[:len(segs)-1] {
		v, ok := cur.values[seg]
		if !ok {
			if !create {
				return nil, "", fmt.Errorf("undefined variable %q", name)
			}
			sub := &Table{values: make(map[string]Value), parent: cur}
			cur.values[seg] = sub
			cur = sub
			continue
		}
		sub, ok := v.(*Table)
		if !ok {
			return nil, "", fmt.Errorf("tried to address %q as a table, but it holds a scalar", seg)
		}
		cur = sub
	}
	return cur, segs[len(segs)-1], nil
}

func splitPath(name string) []string {
	if name == "" {
		return nil
	}
	var segs []string
	start := 0
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			segs = append(segs, name[start:i])
			start = i + 1
		}
	}
	segs = append(segs, name[start:])
	return segs
}
