package mykv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

var invalidFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// fileKV keeps one file per key below dir.
type fileKV struct {
	dir string
}

func NewFileBacked(dir string) KeyValuer {
	return &fileKV{
		dir: dir,
	}
}

func (f *fileKV) path(key string) string {
	return filepath.Join(f.dir, invalidFileChars.ReplaceAllString(key, "_")+".json")
}

func (f *fileKV) Get(c context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("error reading key %s: %w", key, err)
	}
	return string(data), true, nil
}

func (f *fileKV) Set(c context.Context, key string, value string) error {
	err := os.MkdirAll(f.dir, 0o755)
	if err != nil {
		return fmt.Errorf("error creating directory %s: %w", f.dir, err)
	}

	tmp, err := os.CreateTemp(f.dir, ".kv-*")
	if err != nil {
		return fmt.Errorf("error creating temp file for key %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.WriteString(value)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("error writing key %s: %w", key, err)
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("error closing key %s: %w", key, err)
	}

	// rename is atomic, readers never observe a partial value
	err = os.Rename(tmp.Name(), f.path(key))
	if err != nil {
		return fmt.Errorf("error replacing key %s: %w", key, err)
	}
	return nil
}
