package cache

// Table is a fixed-size arena of optional values addressed by document index.
// Indices outside [0, Len) are reported as absent.
type Table[T any] struct {
	values []T
	set    []bool
}

// NewTable creates a Table with n empty slots.
func NewTable[T any](n int) *Table[T] {
	if n < 0 {
		n = 0
	}
	return &Table[T]{values: make([]T, n), set: make([]bool, n)}
}

// Set stores v at index i. It reports false when i is out of range.
func (t *Table[T]) Set(i int, v T) bool {
	if i < 0 || i >= len(t.values) {
		return false
	}
	t.values[i] = v
	t.set[i] = true
	return true
}

// Get returns the value at index i and whether it has been set.
func (t *Table[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(t.values) || !t.set[i] {
		return zero, false
	}
	return t.values[i], true
}

// Has reports whether index i holds a value.
func (t *Table[T]) Has(i int) bool {
	return i >= 0 && i < len(t.set) && t.set[i]
}

// Len returns the number of slots.
func (t *Table[T]) Len() int {
	return len(t.values)
}

// Count returns the number of filled slots.
func (t *Table[T]) Count() int {
	n := 0
	for _, ok := range t.set {
		if ok {
			n++
		}
	}
	return n
}

// Each calls fn for every filled slot in index order.
func (t *Table[T]) Each(fn func(i int, v T)) {
	for i, ok := range t.set {
		if ok {
			fn(i, t.values[i])
		}
	}
}

func (t *Table[T]) reset() {
	t.values = nil
	t.set = nil
}
