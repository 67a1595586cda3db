//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package opennext

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrMissingFunction = errors.New("missing function")
	ErrBrokenSymlink   = errors.New("broken symlink")
)

// Functions every OpenNext build has to ship
var RequiredFunctions = []string{
	"server-functions/default",
	"image-optimization-function",
}

// Verify the OpenNext build located at the application path is deployable:
// manifest exists, required functions are bundled and none of symlinks
// inside the build is dangling.
func Verify(path string) error {
	dir := filepath.Join(path, OutputDir)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, dir)
	}

	if _, err := os.Stat(filepath.Join(dir, OutputFile)); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(dir, OutputFile))
	}

	var errs []error

	for _, f := range RequiredFunctions {
		fdir := filepath.Join(dir, f)
		if _, err := os.Stat(fdir); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingFunction, f))
			continue
		}

		if _, err := os.Stat(filepath.Join(fdir, "index.mjs")); err != nil {
			errs = append(errs, fmt.Errorf("%w: index.mjs in %s", ErrMissingFunction, f))
			continue
		}

		slog.Debug("function verified", "function", f)
	}

	broken, err := BrokenSymlinks(dir)
	if err != nil {
		errs = append(errs, err)
	}
	for _, link := range broken {
		errs = append(errs, fmt.Errorf("%w: %s", ErrBrokenSymlink, link))
	}

	return errors.Join(errs...)
}

// BrokenSymlinks lists dangling symlinks under the directory, relative to it.
// Hidden directories are not visited.
func BrokenSymlinks(dir string) ([]string, error) {
	var seq []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		if _, err := os.Stat(path); err != nil {
			rel, _ := filepath.Rel(dir, path)
			seq = append(seq, rel)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	return seq, nil
}
