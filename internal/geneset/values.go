package geneset

// ValueMap is a symbol to value map that iterates in insertion order.
// Updating an existing key keeps its original position.
type ValueMap struct {
	keys   []string
	values map[string]float64
}

// NewValueMap creates an empty ValueMap.
func NewValueMap() *ValueMap {
	return &ValueMap{values: make(map[string]float64)}
}

// ValueMapOf builds a ValueMap from gene values in order.
func ValueMapOf(pairs ...GeneValue) *ValueMap {
	m := NewValueMap()
	for _, p := range pairs {
		m.Set(p.Symbol, p.Value)
	}
	return m
}

// Set assigns value to key. The zero ValueMap is ready to use.
func (m *ValueMap) Set(key string, value float64) {
	if m.values == nil {
		m.values = make(map[string]float64)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it is present.
func (m *ValueMap) Get(key string) (float64, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of keys.
func (m *ValueMap) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *ValueMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Pairs returns the entries as GeneValues in insertion order.
func (m *ValueMap) Pairs() []GeneValue {
	out := make([]GeneValue, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, GeneValue{Symbol: k, Value: m.values[k]})
	}
	return out
}
