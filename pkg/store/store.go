package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Keys written by the scan engine and read by observers
const (
	KeyCurrentStats        = "currentStats"
	KeyCurrentNonFollowers = "currentNonFollowers"
	KeyLastError           = "lastError"
	KeyIsDownloaded        = "isDownloaded"
)

// AllKeys lists every key the engine maintains
var AllKeys = []string{KeyCurrentStats, KeyCurrentNonFollowers, KeyLastError, KeyIsDownloaded}

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("store: closed")

// Change describes one key written by a Set
type Change struct {
	Key      string          `json:"key"`
	NewValue json.RawMessage `json:"newValue"`
}

// Listener receives changes after they are committed
type Listener func(Change)

// Store is an observable key-value store holding JSON values.
//
// After a successful Set every listener receives one Change per key, in
// sorted key order, on the writer's goroutine, and only once the values are
// visible to Get. Listeners may call Set themselves.
type Store interface {
	// Get returns the stored values for keys; missing keys are absent
	// from the result. With no keys, every stored value is returned.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	// Set writes all values; a nil value is stored as JSON null
	Set(ctx context.Context, values map[string]any) error
	// Subscribe registers fn and returns a function removing it
	Subscribe(fn Listener) (unsubscribe func())
	Close() error
}

// GetInto decodes the value stored under key into v. It reports whether the
// key was present and not null.
func GetInto(ctx context.Context, s Store, key string, v any) (bool, error) {
	values, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	raw, ok := values[key]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return true, nil
}

// encodeValues marshals values and returns them with their keys sorted
func encodeValues(values map[string]any) (map[string]json.RawMessage, []string, error) {
	encoded := make(map[string]json.RawMessage, len(values))
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if k == "" {
			return nil, nil, errors.New("store: empty key")
		}
		raw, err := marshalValue(v)
		if err != nil {
			return nil, nil, fmt.Errorf("store: encode %s: %w", k, err)
		}
		encoded[k] = raw
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return encoded, keys, nil
}

func marshalValue(v any) (json.RawMessage, error) {
	switch val := v.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if !json.Valid(val) {
			return nil, errors.New("invalid raw JSON")
		}
		return append(json.RawMessage(nil), val...), nil
	default:
		return json.Marshal(v)
	}
}

// pick returns the requested subset of all; every value when keys is empty
func pick(all map[string]json.RawMessage, keys []string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	if len(keys) == 0 {
		for k, v := range all {
			out[k] = append(json.RawMessage(nil), v...)
		}
		return out
	}
	for _, k := range keys {
		if v, ok := all[k]; ok {
			out[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// notifier fans committed changes out to listeners
type notifier struct {
	mu        sync.Mutex
	next      int
	listeners map[int]Listener
	order     []int
}

func (n *notifier) subscribe(fn Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.listeners == nil {
		n.listeners = make(map[int]Listener)
	}
	id := n.next
	n.next++
	n.listeners[id] = fn
	n.order = append(n.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners, id)
			for i, v := range n.order {
				if v == id {
					n.order = append(n.order[:i], n.order[i+1:]...)
					break
				}
			}
		})
	}
}

// publish calls every listener for every key, outside the notifier lock
func (n *notifier) publish(encoded map[string]json.RawMessage, keys []string) {
	n.mu.Lock()
	listeners := make([]Listener, 0, len(n.order))
	for _, id := range n.order {
		listeners = append(listeners, n.listeners[id])
	}
	n.mu.Unlock()

	for _, k := range keys {
		for _, fn := range listeners {
			fn(Change{Key: k, NewValue: append(json.RawMessage(nil), encoded[k]...)})
		}
	}
}
