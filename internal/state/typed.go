package state

import "fmt"

// Value is a typed single-key slot.
type Value[T any] struct {
	key []byte
}

// NewValue returns a slot stored under key.
func NewValue[T any](key string) Value[T] {
	return Value[T]{key: []byte(key)}
}

// Key returns the raw storage key.
func (v Value[T]) Key() []byte { return cloneBytes(v.key) }

// Get returns the stored value, or the zero value and false when absent.
func (v Value[T]) Get(r Reader) (T, bool, error) {
	return get[T](r, v.key)
}

// Put stores val.
func (v Value[T]) Put(w Writer, val T) error {
	return put(w, v.key, val)
}

// Map is a typed prefix map. Entries live at prefix+suffix.
type Map[T any] struct {
	prefix []byte
}

// NewMap returns a map rooted at prefix.
func NewMap[T any](prefix string) Map[T] {
	return Map[T]{prefix: []byte(prefix)}
}

// Key returns the raw storage key for suffix.
func (m Map[T]) Key(suffix []byte) []byte {
	key := make([]byte, 0, len(m.prefix)+len(suffix))
	key = append(key, m.prefix...)
	return append(key, suffix...)
}

// Get returns the entry for suffix, or the zero value and false when absent.
func (m Map[T]) Get(r Reader, suffix []byte) (T, bool, error) {
	return get[T](r, m.Key(suffix))
}

// Has reports whether an entry exists for suffix.
func (m Map[T]) Has(r Reader, suffix []byte) (bool, error) {
	_, found, err := r.Get(m.Key(suffix))
	return found, err
}

// Put stores val at suffix.
func (m Map[T]) Put(w Writer, suffix []byte, val T) error {
	return put(w, m.Key(suffix), val)
}

// Delete removes the entry at suffix.
func (m Map[T]) Delete(w Writer, suffix []byte) error {
	return w.Delete(m.Key(suffix))
}

func get[T any](r Reader, key []byte) (T, bool, error) {
	var out T
	raw, found, err := r.Get(key)
	if err != nil || !found {
		return out, false, err
	}
	if err := Decode(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode %q: %w", key, err)
	}
	return out, true, nil
}

func put[T any](w Writer, key []byte, val T) error {
	raw, err := Encode(val)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return w.Put(key, raw)
}
