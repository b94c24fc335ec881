// Package renamer allocates collision-free target identifiers for C
// declarations.
package renamer

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrNameAssigned is returned when a key is declared twice
var ErrNameAssigned = errors.New("name already assigned")

// Renamer maps keys to unique names. Names handed out are never reserved
// words and never repeat within one Renamer.
type Renamer[K comparable] struct {
	names map[K]string
	used  map[string]bool
}

// New creates a renamer that never hands out any of the reserved names
func New[K comparable](reserved ...string) *Renamer[K] {
	r := &Renamer[K]{
		names: make(map[K]string),
		used:  make(map[string]bool, len(reserved)),
	}
	for _, name := range reserved {
		r.used[name] = true
	}
	return r
}

// Insert assigns a name to key, starting from base. Declaring a key twice
// fails with ErrNameAssigned.
func (r *Renamer[K]) Insert(key K, base string) (string, error) {
	if name, ok := r.names[key]; ok {
		return "", errors.Wrapf(ErrNameAssigned, "key %v already named %q", key, name)
	}
	name := r.PickName(base)
	r.names[key] = name
	return name, nil
}

// Alias makes newKey resolve to the name of oldKey without using a new name
func (r *Renamer[K]) Alias(newKey, oldKey K) error {
	name, ok := r.names[oldKey]
	if !ok {
		return errors.Errorf("cannot alias %v to unnamed key %v", newKey, oldKey)
	}
	if existing, ok := r.names[newKey]; ok && existing != name {
		return errors.Wrapf(ErrNameAssigned, "key %v already named %q", newKey, existing)
	}
	r.names[newKey] = name
	return nil
}

// Bind assigns a name previously handed out by PickName to key
func (r *Renamer[K]) Bind(key K, name string) error {
	if existing, ok := r.names[key]; ok {
		return errors.Wrapf(ErrNameAssigned, "key %v already named %q", key, existing)
	}
	if !r.used[name] {
		return errors.Errorf("cannot bind %v to unpicked name %q", key, name)
	}
	r.names[key] = name
	return nil
}

// Get returns the name assigned to key
func (r *Renamer[K]) Get(key K) (string, bool) {
	name, ok := r.names[key]
	return name, ok
}

// PickName reserves and returns a name derived from base: base itself if
// free, otherwise base_0, base_1, ...
func (r *Renamer[K]) PickName(base string) string {
	base = Sanitize(base)
	name := base
	for i := 0; r.used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	r.used[name] = true
	return name
}

// Fresh returns a new temporary name
func (r *Renamer[K]) Fresh() string {
	return r.PickName("fresh")
}

// IsUsed reports whether name has been handed out or reserved
func (r *Renamer[K]) IsUsed(name string) bool {
	return r.used[name]
}

// Names returns the assigned names in sorted order, without duplicates
// from aliasing
func (r *Renamer[K]) Names() []string {
	names := lo.Uniq(lo.Values(r.names))
	sort.Strings(names)
	return names
}

// Sanitize turns s into a valid identifier: runes other than letters,
// digits and underscore become underscores, and a leading digit is
// prefixed with an underscore.
func Sanitize(s string) string {
	if s == "" {
		return "unnamed"
	}
	var sb strings.Builder
	for i, c := range s {
		switch {
		case c == '_' || c < unicode.MaxASCII && unicode.IsLetter(c):
			sb.WriteRune(c)
		case unicode.IsDigit(c) && c < unicode.MaxASCII:
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(c)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
