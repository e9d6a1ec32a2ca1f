package io

import (
	"fmt"
	"os"
	"path/filepath"
)

// MakeDirForFile creates all directories needed to hold filePath, using
// descr to name the failing operation in the wrapped error, if any.
func MakeDirForFile(filePath string, descr string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create dir for %s: %w", descr, err)
	}
	return nil
}
