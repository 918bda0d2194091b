package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// CleanRelPath validates a worker supplied, slash separated path and returns
// it in OS form. The result is always local to whatever root it is joined to.
func CleanRelPath(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: contains NUL byte", ErrInvalidPath)
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	cleaned := path.Clean(p)
	local := filepath.FromSlash(cleaned)
	if cleaned == "." || !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q escapes the library root", ErrInvalidPath, p)
	}
	return local, nil
}

// RelativeTo expresses abs relative to root using forward slashes.
func RelativeTo(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q is outside %q", ErrInvalidPath, abs, root)
	}
	return filepath.ToSlash(rel), nil
}
