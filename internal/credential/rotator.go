// Package credential rotates through a pool of interchangeable API keys.
package credential

import (
	"fmt"
	"strings"
)

// Rotator walks an ordered key pool, skipping keys that have been marked
// exhausted. The cursor only moves forward, so an exhausted key is never
// handed out again. A Rotator belongs to a single goroutine.
type Rotator struct {
	keys      []string
	exhausted map[int]bool
	cursor    int
}

// NewRotator builds a Rotator from keys, dropping blank entries. An empty
// pool is valid and reports no current key.
func NewRotator(keys []string) *Rotator {
	r := &Rotator{exhausted: make(map[int]bool)}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			r.keys = append(r.keys, k)
		}
	}
	return r
}

// Current returns the first non-exhausted key at or after the cursor.
func (r *Rotator) Current() (string, bool) {
	for r.cursor < len(r.keys) {
		if !r.exhausted[r.cursor] {
			return r.keys[r.cursor], true
		}
		r.cursor++
	}
	return "", false
}

// ExhaustCurrent retires the key under the cursor and returns the next
// usable key. Once the pool is spent it keeps returning false.
func (r *Rotator) ExhaustCurrent() (string, bool) {
	if _, ok := r.Current(); !ok {
		return "", false
	}
	r.exhausted[r.cursor] = true
	r.cursor++
	return r.Current()
}

// Len is the pool size.
func (r *Rotator) Len() int { return len(r.keys) }

// Active is the number of keys not yet exhausted.
func (r *Rotator) Active() int { return len(r.keys) - len(r.exhausted) }

// Status describes the pool for logs and progress lines.
func (r *Rotator) Status() string {
	if len(r.keys) == 0 {
		return "no keys loaded"
	}
	if _, ok := r.Current(); !ok {
		return fmt.Sprintf("0/%d keys active (all exhausted)", len(r.keys))
	}
	return fmt.Sprintf("%d/%d keys active (using key #%d)", r.Active(), len(r.keys), r.cursor+1)
}
