package style

import "sync"

// ClassID identifies a named style class within one [ClassDictionary].
type ClassID uint32

// Reserved classes. They always take the lowest precedence, Fallback last.
const (
	ClassFallback ClassID = iota
	ClassDefault
	firstNamedClass
)

// Reserved class names.
const (
	DefaultClassName  = "default"
	FallbackClassName = "fallback"
)

// ClassDictionary interns class names. Each [Style] owns its own dictionary,
// so identifiers are only comparable within one engine.
type ClassDictionary struct {
	mu    sync.Mutex
	ids   map[string]ClassID
	names []string
}

// NewClassDictionary returns a dictionary holding only the reserved classes.
func NewClassDictionary() *ClassDictionary {
	return &ClassDictionary{
		ids: map[string]ClassID{
			"":                ClassDefault,
			DefaultClassName:  ClassDefault,
			FallbackClassName: ClassFallback,
		},
		names: []string{FallbackClassName, DefaultClassName},
	}
}

// Lookup returns the identifier for name, assigning a new one on first use.
// The empty name and "default" map to ClassDefault.
func (d *ClassDictionary) Lookup(name string) ClassID {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.ids[name]; ok {
		return id
	}
	id := ClassID(len(d.names))
	d.ids[name] = id
	d.names = append(d.names, name)
	return id
}

// Name returns the name id was assigned for, or "" if id is unknown.
func (d *ClassDictionary) Name(id ClassID) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(id) < len(d.names) {
		return d.names[id]
	}
	return ""
}

// Precedence converts the active classes into cascade order: the active
// classes last-declared first, then ClassDefault, then ClassFallback.
// Reserved names among the active classes are ignored.
func (d *ClassDictionary) Precedence(active []string) []ClassID {
	out := make([]ClassID, 0, len(active)+2)
	seen := make(map[ClassID]bool, len(active))
	for i := len(active) - 1; i >= 0; i-- {
		id := d.Lookup(active[i])
		if id < firstNamedClass || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return append(out, ClassDefault, ClassFallback)
}
