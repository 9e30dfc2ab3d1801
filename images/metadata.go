package images

// Metadata is an ordered set of text fields carried from the source
// container (e.g. a PNG "parameters" field).
//
// The zero value is ready to use. Keys keep the position of their first
// insertion.
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata builds metadata from alternating key/value pairs.
//
// Example:
//
// ```go
//
//	md := NewMetadata("parameters", "seed=42", "Software", "vision")
//
// ```
func NewMetadata(pairs ...string) *Metadata {
	md := &Metadata{}
	for i := 0; i+1 < len(pairs); i += 2 {
		md.Set(pairs[i], pairs[i+1])
	}
	return md
}

// Set stores a value, appending the key if it is new.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *Metadata) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of fields.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Filter returns a copy holding only the fields accepted by keep, in order.
func (m *Metadata) Filter(keep func(key, value string) bool) *Metadata {
	out := &Metadata{}
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		if v := m.values[k]; keep(k, v) {
			out.Set(k, v)
		}
	}
	return out
}

// Each calls fn for every field in order.
func (m *Metadata) Each(fn func(key, value string)) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}
