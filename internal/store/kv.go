// Package store persists the assistant's client-local state as whole JSON
// values under fixed keys. Merging always happens in memory before a write.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Keys of the persisted values.
const (
	KeyInputLanguage   = "progenai_input_language"
	KeyAPICredentials  = "progenai_api_keys"
	KeyCloudTTSEnabled = "progenai_useCloudTTS"
	KeyCloudVoiceID    = "progenai_cloud_voice_id"
	KeyPlugins         = "progenai_plugins"
	KeyActivePlugins   = "progenai_active_plugins"
	KeySavedPrompts    = "progenai_saved_prompts"
)

// KV is the key/value contract every backend satisfies. Set replaces the
// whole value atomically.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// GetJSON decodes the value under key into dst. It reports false when the key
// is absent.
func GetJSON(ctx context.Context, kv KV, key string, dst any) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, kv KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, raw)
}

// MemoryStore keeps values in process memory. Used for tests and the memory
// backend.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

var _ KV = (*MemoryStore)(nil)
