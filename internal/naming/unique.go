package naming

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const maxCollisionSuffix = 10000

// candidate returns path itself for n < 2, otherwise the base name suffixed
// with " (n)" before the extension.
func candidate(path string, n int) string {
	if n < 2 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(path, ext), n, ext)
}

// UniquePath returns the first of path, "path (2)", "path (3)", ... that
// does not exist. Over a stable filesystem the result is idempotent:
// applying it twice yields the same name as applying it once.
func UniquePath(path string) string {
	for n := 1; n <= maxCollisionSuffix; n++ {
		c := candidate(path, n)
		if _, err := os.Stat(c); err != nil {
			return c
		}
	}
	return candidate(path, maxCollisionSuffix+1)
}

// RenameUnique moves src onto target, appending " (N)" before the extension
// while the target name is taken. Each slot is claimed with O_CREATE|O_EXCL
// before the rename, so concurrent jobs racing for the same name settle on
// different suffixes instead of overwriting each other.
func RenameUnique(src, target string) (string, error) {
	for n := 1; n <= maxCollisionSuffix; n++ {
		c := candidate(target, n)
		f, err := os.OpenFile(c, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("claim %s: %w", c, err)
		}
		f.Close()
		if err := os.Rename(src, c); err != nil {
			os.Remove(c)
			return "", fmt.Errorf("rename %s: %w", src, err)
		}
		return c, nil
	}
	return "", fmt.Errorf("no free name for %s", target)
}
