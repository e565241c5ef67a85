package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Remote is the external store where settings are persisted.
type Remote interface {
	FetchSettings(ctx context.Context) (map[string]any, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// Change describes a mutation of the settings, as delivered to listeners.
//
// Key is empty when the whole set of settings has been replaced (e.g. after [Store.Load]).
type Change struct {
	Key      string
	Previous Settings
	Current  Settings
}

// Listener is notified after each effective change of the settings.
type Listener func(Change)

// Store owns the current [Settings].
//
// Reads and updates are synchronous. Every effective update (re)arms a save timer: the settings
// are persisted once the debounce window has elapsed without any further update.
type Store struct {
	options

	remote Remote

	mu        sync.Mutex
	current   Settings
	timer     *time.Timer
	armed     uint64 // generation of the currently armed timer
	closed    bool
	listeners map[uint64]Listener
	nextID    uint64
}

// New builds a [Store] initialized with [Defaults].
func New(remote Remote, opts ...Option) *Store {
	return &Store{
		options:   optionsWithDefaults(opts),
		remote:    remote,
		current:   Defaults(),
		listeners: make(map[uint64]Listener),
	}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// Load fetches the settings from the remote store.
//
// Load never fails: on error the current settings are retained and a warning is logged.
func (s *Store) Load(ctx context.Context) Settings {
	raw, err := s.remote.FetchSettings(ctx)
	if err != nil {
		s.l.Warn("failed to load settings, using current values", slog.String("error", err.Error()))

		return s.Get()
	}

	s.mu.Lock()
	previous := s.current
	loaded, errs := FromMap(raw, previous)
	s.current = loaded
	s.mu.Unlock()

	for _, e := range errs {
		s.l.Warn("ignored remote setting", slog.String("error", e.Error()))
	}

	if loaded != previous {
		s.notify(Change{Previous: previous, Current: loaded})
	}

	s.l.Debug("settings loaded", slog.Any("settings", loaded))

	return loaded
}

// Update sets the value of one setting.
//
// The new value is visible to all readers as soon as Update returns. Setting a value equal
// to the current one is a no-op.
func Update[T comparable](s *Store, key Key[T], value T) error {
	if err := key.Validate(value); err != nil {
		return err
	}

	s.mu.Lock()
	previous := s.current
	*key.ref(&s.current) = value
	current := s.current
	s.mu.Unlock()

	s.changed(key.Name(), previous, current)

	return nil
}

// Set assigns a setting from an untyped value, e.g. a command line argument or a form field.
//
// The value is converted with the same rules as values loaded from the remote store.
func (s *Store) Set(name string, raw any) error {
	f, ok := lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}

	s.mu.Lock()
	previous := s.current
	next := previous
	if err := f.apply(&next, raw); err != nil {
		s.mu.Unlock()

		return err
	}
	s.current = next
	s.mu.Unlock()

	s.changed(name, previous, next)

	return nil
}

// SetAll assigns several settings from untyped values, as one change.
//
// Every value is checked before any is applied: when one name or value is invalid, the settings
// are left untouched and all the errors are returned.
func (s *Store) SetAll(raw map[string]any) error {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)

	s.mu.Lock()
	previous := s.current
	next := previous
	var errs []error
	for _, name := range names {
		f, ok := lookup(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownSetting, name))

			continue
		}

		if err := f.apply(&next, raw[name]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		s.mu.Unlock()

		return errors.Join(errs...)
	}
	s.current = next
	s.mu.Unlock()

	var key string
	if len(names) == 1 {
		key = names[0]
	}
	s.changed(key, previous, next)

	return nil
}

// Persist saves the current settings to the remote store.
//
// Errors are returned to the caller.
func (s *Store) Persist(ctx context.Context) error {
	current := s.Get()
	if err := s.remote.SaveSettings(ctx, current); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	s.l.Debug("settings saved", slog.Any("settings", current))

	return nil
}

// Subscribe registers a listener. The returned function removes it.
//
// Listeners are called synchronously, outside of the store lock, from the goroutine that made the change.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Pending reports whether a debounced save is scheduled.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.timer != nil
}

// Close cancels the pending debounced save, if any, and flushes it immediately.
//
// Updates after Close are still applied in memory but are no longer saved automatically.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	pending := s.timer != nil
	if pending {
		s.timer.Stop()
		s.timer = nil
		s.armed++
	}
	s.mu.Unlock()

	if !pending {
		return nil
	}

	return s.Persist(ctx)
}

func (s *Store) changed(key string, previous, current Settings) {
	if previous == current {
		return
	}

	s.schedule()
	s.notify(Change{Key: key, Previous: previous, Current: current})
}

// schedule (re)arms the debounce timer: a pending save is superseded, not queued.
func (s *Store) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}

	s.armed++
	generation := s.armed
	s.timer = time.AfterFunc(s.debounce, func() {
		s.flush(generation)
	})
}

func (s *Store) flush(generation uint64) {
	s.mu.Lock()
	if generation != s.armed || s.closed {
		// superseded by a later update, or already flushed by Close
		s.mu.Unlock()

		return
	}
	s.timer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if err := s.Persist(ctx); err != nil {
		s.l.Error("debounced save failed", slog.String("error", err.Error()))
		if s.onSaveError != nil {
			s.onSaveError(err)
		}
	}
}

func (s *Store) notify(change Change) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}
