// Package recent keeps the bounded, most-recent-first list of cities the user
// searched for successfully, persisted under a single storage key.
package recent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/vzahanych/weather-widget/internal/storage"
	"go.uber.org/zap"
)

const (
	StorageKey        = "recentSearches"
	DefaultMaxEntries = 5
)

// Confirmer is the yes/no gate in front of destructive operations.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

const ClearPrompt = "Clear search history?"

type Cache struct {
	store      storage.Store
	maxEntries int
	logger     *zap.Logger

	mu     sync.RWMutex
	items  []string
	loaded bool
}

func New(store storage.Store, maxEntries int, logger *zap.Logger) *Cache {
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:      store,
		maxEntries: maxEntries,
		logger:     logger.With(zap.String("component", "recent")),
	}
}

// Load replaces the in-memory list with the persisted one. Missing or corrupt
// data yields an empty list and is only logged. The read and the swap happen
// under one lock, so a concurrent Record either lands before the read or
// builds on the loaded list.
func (c *Cache) Load(ctx context.Context) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = c.read(ctx)
	c.loaded = true
	return clone(c.items)
}

// read loads the stored list. Callers hold c.mu.
func (c *Cache) read(ctx context.Context) []string {
	raw, err := c.store.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		c.logger.Warn("Failed to read recent searches, starting empty", zap.Error(err))
		return nil
	}

	var stored []string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.logger.Warn("Stored recent searches are corrupt, starting empty", zap.Error(err))
		return nil
	}

	// Re-apply the invariants in case the stored list was edited by hand.
	items := make([]string, 0, len(stored))
	for _, city := range stored {
		name := Canonical(city)
		if name == "" || slices.Contains(items, name) {
			continue
		}
		items = append(items, name)
		if len(items) == c.maxEntries {
			break
		}
	}
	return items
}

// Record moves city to the front of the list, evicting from the tail past the
// bound, and persists the whole list before returning. If persisting fails the
// list is left as it was. The stored list is read first if Load has not run.
func (c *Cache) Record(ctx context.Context, city string) ([]string, error) {
	name := Canonical(city)
	if name == "" {
		return c.List(), errors.New("recent: empty city name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		c.items = c.read(ctx)
		c.loaded = true
	}

	next := make([]string, 0, c.maxEntries)
	next = append(next, name)
	for _, existing := range c.items {
		if existing == name {
			continue
		}
		if len(next) == c.maxEntries {
			break
		}
		next = append(next, existing)
	}

	serialized, err := json.Marshal(next)
	if err != nil {
		return clone(c.items), err
	}
	if err := c.store.Set(ctx, StorageKey, string(serialized)); err != nil {
		return clone(c.items), fmt.Errorf("failed to persist recent searches: %w", err)
	}

	c.items = next
	c.logger.Debug("Recorded recent search", zap.String("city", name), zap.Int("size", len(next)))

	return clone(next), nil
}

// Clear empties the list after confirm agrees. It reports whether anything was cleared.
func (c *Cache) Clear(ctx context.Context, confirm Confirmer) (bool, error) {
	if confirm == nil {
		return false, nil
	}

	ok, err := confirm.Confirm(ctx, ClearPrompt)
	if err != nil {
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Remove(ctx, StorageKey); err != nil {
		return false, fmt.Errorf("failed to clear recent searches: %w", err)
	}
	c.items = nil
	c.loaded = true

	c.logger.Info("Cleared recent searches")
	return true, nil
}

func (c *Cache) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.items)
}

// At returns the entry at index (0 is the most recent).
func (c *Cache) At(index int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.items) {
		return "", false
	}
	return c.items[index], true
}

func (c *Cache) MaxEntries() int {
	return c.maxEntries
}

// Canonical trims and lower-cases city, then upper-cases the first letter of
// every whitespace-separated token: "  NEW   york " -> "New York". Invalid
// UTF-8 bytes are kept as they are.
func Canonical(city string) string {
	tokens := strings.Fields(city)
	for i, token := range tokens {
		tokens[i] = titleToken(token)
	}
	return strings.Join(tokens, " ")
}

func titleToken(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for i := 0; i < len(token); {
		r, size := utf8.DecodeRuneInString(token[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteByte(token[i])
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(unicode.ToLower(r))
		}
		i += size
	}
	return b.String()
}

func clone(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	return out
}
