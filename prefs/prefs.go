// Package prefs provides a small typed key-value store scoped to a private
// namespace, in the spirit of Android's SharedPreferences.
//
// Values are kept as strings by every Backend; Preferences adds the typed
// accessors on top. Writes go through an Editor and become visible only when
// Commit succeeds.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// DefaultNamespace is the namespace used when none is configured.
const DefaultNamespace = "GCM_PREF"

// ErrNoNamespace is returned when a Preferences is built without a namespace.
var ErrNoNamespace = errors.New("prefs: namespace is required")

// Backend persists flat string maps, one per namespace.
//
// Apply must be all-or-nothing: either every key in set and remove is
// written, or none is.
type Backend interface {
	Load(ctx context.Context, namespace string) (map[string]string, error)
	Apply(ctx context.Context, namespace string, set map[string]string, remove []string) error
}

// Preferences is a typed view over one namespace of a Backend.
type Preferences struct {
	backend   Backend
	namespace string
}

// New binds a Backend to a namespace.
func New(backend Backend, namespace string) (*Preferences, error) {
	if backend == nil {
		return nil, errors.New("prefs: backend is required")
	}
	if namespace == "" {
		return nil, ErrNoNamespace
	}
	return &Preferences{backend: backend, namespace: namespace}, nil
}

// Namespace returns the namespace this view is bound to.
func (p *Preferences) Namespace() string { return p.namespace }

// All returns a copy of every key in the namespace.
func (p *Preferences) All(ctx context.Context) (map[string]string, error) {
	values, err := p.backend.Load(ctx, p.namespace)
	if err != nil {
		return nil, fmt.Errorf("prefs: load %s: %w", p.namespace, err)
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out, nil
}

// GetString returns the value stored under key and whether it was present.
func (p *Preferences) GetString(ctx context.Context, key string) (string, bool, error) {
	values, err := p.backend.Load(ctx, p.namespace)
	if err != nil {
		return "", false, fmt.Errorf("prefs: load %s: %w", p.namespace, err)
	}
	v, ok := values[key]
	return v, ok, nil
}

// GetInt returns the integer stored under key and whether it was present.
// A stored value that does not parse as an integer is an error.
func (p *Preferences) GetInt(ctx context.Context, key string) (int, bool, error) {
	raw, ok, err := p.GetString(ctx, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("prefs: %s/%s is not an integer: %w", p.namespace, key, err)
	}
	return n, true, nil
}

// GetUint64 returns the unsigned integer stored under key and whether it was present.
func (p *Preferences) GetUint64(ctx context.Context, key string) (uint64, bool, error) {
	raw, ok, err := p.GetString(ctx, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("prefs: %s/%s is not an unsigned integer: %w", p.namespace, key, err)
	}
	return n, true, nil
}

// Edit starts a batch of changes.
func (p *Preferences) Edit() *Editor {
	return &Editor{
		prefs: p,
		set:   make(map[string]string),
	}
}

// Editor collects changes until Commit. An Editor is not safe for concurrent use.
type Editor struct {
	prefs  *Preferences
	set    map[string]string
	remove []string
}

// PutString stages a string value.
func (e *Editor) PutString(key, value string) *Editor {
	e.set[key] = value
	return e
}

// PutInt stages an integer value.
func (e *Editor) PutInt(key string, value int) *Editor {
	e.set[key] = strconv.Itoa(value)
	return e
}

// PutUint64 stages an unsigned integer value.
func (e *Editor) PutUint64(key string, value uint64) *Editor {
	e.set[key] = strconv.FormatUint(value, 10)
	return e
}

// Remove stages the deletion of key. A later Put for the same key wins.
func (e *Editor) Remove(key string) *Editor {
	e.remove = append(e.remove, key)
	return e
}

// Commit writes all staged changes in one backend call.
func (e *Editor) Commit(ctx context.Context) error {
	var remove []string
	for _, k := range e.remove {
		if _, ok := e.set[k]; !ok {
			remove = append(remove, k)
		}
	}
	if len(e.set) == 0 && len(remove) == 0 {
		return nil
	}
	if err := e.prefs.backend.Apply(ctx, e.prefs.namespace, e.set, remove); err != nil {
		return fmt.Errorf("prefs: commit %s: %w", e.prefs.namespace, err)
	}
	return nil
}
