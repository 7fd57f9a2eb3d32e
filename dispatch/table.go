package dispatch

import "sync"

// Table maps levels to implementations of one kernel. F is normally a func type.
// Registration usually happens in init functions. Resolve is safe for
// concurrent use with Register.
type Table[F any] struct {
	mu    sync.RWMutex
	impls [numLevels]*F
}

// Register installs f as the variant for level, replacing any earlier one.
func (t *Table[F]) Register(level Level, f F) {
	if level < 0 || level >= numLevels {
		return
	}
	t.mu.Lock()
	t.impls[level] = &f
	t.mu.Unlock()
}

// Resolve returns the best registered variant runnable at level, and the level
// it was registered for. ok is false when nothing fits, not even Generic.
func (t *Table[F]) Resolve(level Level) (f F, at Level, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for l := numLevels - 1; l >= 0; l-- {
		if t.impls[l] != nil && level.Supports(l) {
			return *t.impls[l], l, true
		}
	}
	return f, Generic, false
}

// MustResolve is Resolve for tables that always register a Generic variant.
func (t *Table[F]) MustResolve(level Level) F {
	f, _, ok := t.Resolve(level)
	if !ok {
		panic("dispatch: no variant registered for " + level.String())
	}
	return f
}

// Levels lists the registered levels, lowest first.
func (t *Table[F]) Levels() []Level {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Level
	for l, f := range t.impls {
		if f != nil {
			out = append(out, Level(l))
		}
	}
	return out
}
