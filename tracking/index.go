package tracking

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/fixup/graph"
	"github.com/syssam/fixup/schema/field"
)

// encodeKey returns a canonical map key for a key or foreign-key value.
// Integers of every width encode identically, so an int key matches an int64
// foreign key. The second result is false when any component is unset.
func encodeKey(values []any) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	enc.UseCompactFloats(true)
	for _, v := range values {
		v = field.Normalize(v)
		if v == nil {
			return "", false
		}
		if err := enc.Encode(v); err != nil {
			return "", false
		}
	}
	return buf.String(), true
}

// EncodeKey returns the canonical string form of key values, as used by the
// tracker indexes. It reports false when any component is unset.
func EncodeKey(values ...any) (string, bool) {
	return encodeKey(values)
}

// sameKey reports whether two key values are equal. Two unset values are
// equal to each other.
func sameKey(a, b []any) bool {
	ka, oka := encodeKey(a)
	kb, okb := encodeKey(b)
	if oka && okb {
		return ka == kb
	}
	if oka != okb {
		return false
	}
	return formatKey(a) == formatKey(b)
}

// formatKey renders key values for logs, errors and the debug view.
func formatKey(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		v = field.Normalize(v)
		if v == nil {
			parts[i] = "?"
			continue
		}
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

// principalIndex maps encoded keys to tracked entries, per entity kind.
type principalIndex map[*graph.Type]map[string]*Entry

func (idx principalIndex) get(t *graph.Type, key string) *Entry {
	return idx[t][key]
}

func (idx principalIndex) put(e *Entry) {
	if e.key == "" {
		return
	}
	m := idx[e.typ]
	if m == nil {
		m = make(map[string]*Entry)
		idx[e.typ] = m
	}
	m[e.key] = e
}

func (idx principalIndex) delete(e *Entry) {
	if e.key == "" {
		return
	}
	if idx[e.typ][e.key] == e {
		delete(idx[e.typ], e.key)
	}
}

// foreignKeyIndex maps encoded foreign-key values to the tracked dependents
// holding them, per relationship. It lets a principal find dependents that
// were attached before it without scanning the tracker.
type foreignKeyIndex map[*graph.Relationship]map[string][]*Entry

func (idx foreignKeyIndex) get(r *graph.Relationship, key string) []*Entry {
	if key == "" {
		return nil
	}
	return slices.Clone(idx[r][key])
}

func (idx foreignKeyIndex) put(r *graph.Relationship, key string, e *Entry) {
	m := idx[r]
	if m == nil {
		m = make(map[string][]*Entry)
		idx[r] = m
	}
	if !slices.Contains(m[key], e) {
		m[key] = append(m[key], e)
	}
}

func (idx foreignKeyIndex) delete(r *graph.Relationship, key string, e *Entry) {
	m := idx[r]
	if m == nil {
		return
	}
	m[key] = slices.DeleteFunc(m[key], func(o *Entry) bool { return o == e })
	if len(m[key]) == 0 {
		delete(m, key)
	}
}
