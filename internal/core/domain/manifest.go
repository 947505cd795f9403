package domain

import "sort"

// ManifestEntry is one authoritative configuration parameter.
type ManifestEntry struct {
	Key   string `json:"key" koanf:"key" yaml:"key"`
	Value string `json:"value" koanf:"value" yaml:"value"`
}

// Manifest is the authoritative runtime configuration, kept as an ordered
// sequence. Drift checks walk it in this order, so the first reported
// violation is reproducible.
//
// A Manifest is immutable once built; accessors return copies.
type Manifest struct {
	entries []ManifestEntry
	index   map[string]int
}

// NewManifest builds a manifest preserving the given order.
// Keys must be non-empty and unique.
func NewManifest(entries ...ManifestEntry) (Manifest, error) {
	m := Manifest{
		entries: make([]ManifestEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Key == "" {
			return Manifest{}, ErrManifestInvalid.WithDetails("empty key")
		}
		if _, dup := m.index[e.Key]; dup {
			return Manifest{}, ErrManifestInvalid.WithDetails("duplicate key: " + e.Key)
		}
		m.index[e.Key] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return m, nil
}

// ManifestFromMap builds a manifest from an unordered map. Keys are sorted
// lexically so the resulting order is deterministic. An empty key is dropped.
func ManifestFromMap(values map[string]string) Manifest {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := Manifest{
		entries: make([]ManifestEntry, 0, len(keys)),
		index:   make(map[string]int, len(keys)),
	}
	for _, k := range keys {
		m.index[k] = len(m.entries)
		m.entries = append(m.entries, ManifestEntry{Key: k, Value: values[k]})
	}
	return m
}

// Len returns the number of entries.
func (m Manifest) Len() int {
	return len(m.entries)
}

// Get returns the trusted value for key.
func (m Manifest) Get(key string) (string, bool) {
	i, ok := m.index[key]
	if !ok {
		return "", false
	}
	return m.entries[i].Value, true
}

// Entries returns a copy of the entries in manifest order.
func (m Manifest) Entries() []ManifestEntry {
	out := make([]ManifestEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Each calls fn for every entry in order until fn returns false.
func (m Manifest) Each(fn func(key, value string) bool) {
	for _, e := range m.entries {
		if !fn(e.Key, e.Value) {
			return
		}
	}
}
