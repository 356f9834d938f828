package animator

// arena stores values densely for cache-friendly iteration and maps entities to their slot.
// Removal moves the last value into the freed slot, so slot indices are not stable but entity
// lookups are.
type arena[T any] struct {
	items    []T
	entities []Entity
	index    map[Entity]int
}

func newArena[T any]() *arena[T] {
	return &arena[T]{index: make(map[Entity]int)}
}

// add stores v for e. It reports false, leaving the arena untouched, if e already has a value.
func (a *arena[T]) add(e Entity, v T) bool {
	if _, ok := a.index[e]; ok {
		return false
	}
	a.index[e] = len(a.items)
	a.items = append(a.items, v)
	a.entities = append(a.entities, e)
	return true
}

func (a *arena[T]) get(e Entity) (T, bool) {
	i, ok := a.index[e]
	if !ok {
		var zero T
		return zero, false
	}
	return a.items[i], true
}

// remove deletes e's value using swap-and-pop.
//
// Returns:
//   - T: the removed value
//   - bool: false if e had no value
func (a *arena[T]) remove(e Entity) (T, bool) {
	i, ok := a.index[e]
	if !ok {
		var zero T
		return zero, false
	}
	removed := a.items[i]
	last := len(a.items) - 1
	if i != last {
		a.items[i] = a.items[last]
		a.entities[i] = a.entities[last]
		a.index[a.entities[i]] = i
	}
	var zero T
	a.items[last] = zero
	a.items = a.items[:last]
	a.entities = a.entities[:last]
	delete(a.index, e)
	return removed, true
}

func (a *arena[T]) len() int {
	return len(a.items)
}
