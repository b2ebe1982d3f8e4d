package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyDir recursively copies the tree at src into dst, creating dst and any
// nested directories. It is used for the export's attachment directory, so
// a missing or non-directory src is an error rather than a silent skip: an
// export without it is incomplete.
func CopyDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("storage: stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: not a directory: %s", src)
	}
	return copyTree(src, dst)
}

func copyTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", dst, err)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("storage: read dir %s: %w", src, err)
	}
	for _, entry := range entries {
		s := filepath.Join(src, entry.Name())
		d := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyTree(s, d); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(s, d); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("storage: copy %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", dst, err)
	}
	return nil
}
