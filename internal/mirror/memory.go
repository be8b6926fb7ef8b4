package mirror

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store. The server falls back to it when no
// Firestore project is configured; tests use it directly.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]any)}
}

func (m *MemoryStore) Commit(ctx context.Context, writes []Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateWrites(writes); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range writes {
		switch w.Kind {
		case WriteSet:
			m.docs[w.Path] = mergeInto(map[string]any{}, w.Data)
		case WriteMerge:
			doc, ok := m.docs[w.Path]
			if !ok {
				doc = map[string]any{}
			}
			m.docs[w.Path] = mergeInto(doc, w.Data)
		case WriteDelete:
			delete(m.docs, w.Path)
		default:
			return fmt.Errorf("mirror: unknown write kind %d", w.Kind)
		}
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, path string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMap(doc), nil
}

func (m *MemoryStore) Close() error { return nil }

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func mergeInto(dst, src map[string]any) map[string]any {
	for k, v := range src {
		switch val := v.(type) {
		case Increment:
			dst[k] = addIncrement(dst[k], int64(val))
		case map[string]any:
			sub, ok := dst[k].(map[string]any)
			if !ok {
				sub = map[string]any{}
			}
			dst[k] = mergeInto(sub, val)
		case []any:
			dst[k] = copySlice(val)
		default:
			dst[k] = v
		}
	}
	return dst
}

// addIncrement follows Firestore: a missing or non-numeric field becomes the
// increment value.
func addIncrement(cur any, n int64) any {
	switch c := cur.(type) {
	case int64:
		return c + n
	case int:
		return int64(c) + n
	case float64:
		return c + float64(n)
	default:
		return n
	}
}

func copyMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		switch val := v.(type) {
		case map[string]any:
			out[k] = copyMap(val)
		case []any:
			out[k] = copySlice(val)
		default:
			out[k] = v
		}
	}
	return out
}

func copySlice(src []any) []any {
	out := make([]any, len(src))
	for i, v := range src {
		switch val := v.(type) {
		case map[string]any:
			out[i] = copyMap(val)
		case []any:
			out[i] = copySlice(val)
		default:
			out[i] = v
		}
	}
	return out
}
