package notebook

import "sort"

// Map holds notebooks by name.
type Map map[string]*Notebook

// GetOrInsert returns the named notebook, creating an empty one if needed.
func (m Map) GetOrInsert(name string) *Notebook {
	nb, ok := m[name]
	if !ok {
		nb = New()
		m[name] = nb
	}
	return nb
}

// Names returns notebook names in sorted order.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone deep-copies every notebook.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for name, nb := range m {
		out[name] = nb.Clone()
	}
	return out
}
