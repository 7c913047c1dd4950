package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileBackend stores each namespace as <dir>/<namespace>.json.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

// NewFileBackend returns a FileBackend rooted at dir. The directory is
// created on first write.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

// Path returns the file that holds namespace.
func (f *FileBackend) Path(namespace string) string {
	return filepath.Join(f.dir, namespace+".json")
}

func (f *FileBackend) Load(_ context.Context, namespace string) (map[string]string, error) {
	if err := validNamespace(namespace); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(namespace)
}

func (f *FileBackend) Apply(_ context.Context, namespace string, set map[string]string, remove []string) error {
	if err := validNamespace(namespace); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read(namespace)
	if err != nil {
		return err
	}
	for _, k := range remove {
		delete(values, k)
	}
	for k, v := range set {
		values[k] = v
	}
	return f.write(namespace, values)
}

func (f *FileBackend) read(namespace string) (map[string]string, error) {
	data, err := os.ReadFile(f.Path(namespace))
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, err
	}
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path(namespace), err)
	}
	return values, nil
}

// write replaces the namespace file via a temp file and rename so a crash
// never leaves a half-written file behind.
func (f *FileBackend) write(namespace string, values map[string]string) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("creating preferences directory: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing preferences: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, "."+namespace+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing preferences: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path(namespace)); err != nil {
		return fmt.Errorf("replacing preferences: %w", err)
	}
	return nil
}

func validNamespace(namespace string) error {
	if namespace == "" {
		return ErrNoNamespace
	}
	if strings.ContainsAny(namespace, `/\`) || namespace == "." || namespace == ".." {
		return fmt.Errorf("prefs: invalid namespace %q", namespace)
	}
	return nil
}
