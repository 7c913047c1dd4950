package gcmutility

import "fmt"

// VersionSource yields the running application's version code.
type VersionSource interface {
	VersionCode() (int, error)
}

// StaticVersion is a fixed version code.
type StaticVersion int

func (v StaticVersion) VersionCode() (int, error) { return int(v), nil }

// VersionFunc adapts a function to VersionSource.
type VersionFunc func() (int, error)

func (f VersionFunc) VersionCode() (int, error) { return f() }

func currentVersion(src VersionSource) (int, error) {
	if src == nil {
		return 0, fmt.Errorf("%w: no version source", ErrAppVersion)
	}
	v, err := src.VersionCode()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAppVersion, err)
	}
	return v, nil
}
