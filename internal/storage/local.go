package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Local keeps objects as files below a root directory. Object names use
// forward slashes whatever the platform.
type Local struct {
	root string
}

func NewLocal(root string) *Local {
	if root == "" {
		root = "."
	}
	return &Local{root: root}
}

func (l *Local) path(name string) (string, error) {
	clean := path.Clean("/" + name)
	if name == "" || clean == "/" || strings.HasSuffix(name, "/") {
		return "", fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	if clean != "/"+strings.TrimPrefix(name, "/") {
		return "", fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean[1:])), nil
}

func (l *Local) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := l.path(name)
	if err != nil {
		return nil, err
	}

	fp, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return fp, nil
}

// Put writes to a temporary file next to the target and renames it, so a
// reader never sees a partial object.
func (l *Local) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := l.path(name)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	fp, err := os.CreateTemp(dir, "."+filepath.Base(p)+"-")
	if err != nil {
		return err
	}

	n, err := io.Copy(fp, r)
	if err == nil && size >= 0 && n != size {
		err = fmt.Errorf("short write for %s: wrote %d of %d bytes", name, n, size)
	}
	if cerr := fp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(fp.Name())
		return err
	}

	if err = os.Rename(fp.Name(), p); err != nil {
		_ = os.Remove(fp.Name())
		return err
	}
	return nil
}

func (l *Local) List(ctx context.Context, prefix string) ([]string, error) {
	names := make([]string, 0)
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}
