//
// Copyright (C) 2025 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/nextsite
//

package opennext

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Report of symlinks repair
type Report struct {
	Fixed  int
	Failed int
}

// FixSymlinks repairs executables linked by pnpm into node_modules/.bin of
// the OpenNext build. Lambda packages cannot carry links into the pnpm store,
// therefore every dangling link is replaced with a copy of the executable
// it resolves to. Links without resolvable executable are removed.
func FixSymlinks(path string) (Report, error) {
	var report Report

	dir := filepath.Join(path, OutputDir)
	if _, err := os.Stat(dir); err != nil {
		return report, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}

	bins, err := binDirs(dir)
	if err != nil {
		return report, err
	}

	if len(bins) == 0 {
		slog.Warn("no .bin directories found", "dir", dir)
		return report, nil
	}

	for _, bin := range bins {
		if err := fixBinDir(bin, &report); err != nil {
			return report, err
		}
	}

	slog.Info("symlink fix complete", "fixed", report.Fixed, "errors", report.Failed)

	return report, nil
}

// lookup .bin directories, node_modules are not visited beyond its .bin
func binDirs(dir string) ([]string, error) {
	var seq []string

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		switch entry.Name() {
		case ".bin":
			seq = append(seq, path)
		case "node_modules":
			bin := filepath.Join(path, ".bin")
			if fi, err := os.Stat(bin); err == nil && fi.IsDir() {
				seq = append(seq, bin)
			}
		default:
			sub, err := binDirs(path)
			if err != nil {
				return nil, err
			}
			seq = append(seq, sub...)
		}
	}

	return seq, nil
}

func fixBinDir(bin string, report *Report) error {
	entries, err := os.ReadDir(bin)
	if err != nil {
		return fmt.Errorf("reading %s: %w", bin, err)
	}

	for _, entry := range entries {
		link := filepath.Join(bin, entry.Name())

		fi, err := os.Lstat(link)
		if err != nil {
			slog.Error("unable to stat", "file", link, "err", err)
			report.Failed++
			continue
		}

		if fi.Mode()&os.ModeSymlink == 0 {
			continue
		}

		if _, err := os.Stat(link); err == nil {
			continue
		}

		exec := resolve(link, bin)
		if exec == "" {
			slog.Error("could not find executable", "link", link)
			if err := os.Remove(link); err != nil {
				return fmt.Errorf("removing %s: %w", link, err)
			}
			report.Failed++
			continue
		}

		if err := replace(link, exec); err != nil {
			return err
		}

		slog.Info("symlink fixed", "link", link, "exec", exec)
		report.Fixed++
	}

	return nil
}

// resolve candidate locations of the executable within node_modules
func resolve(link, bin string) string {
	name := filepath.Base(link)
	modules := filepath.Dir(bin)

	var candidates []string

	if target, err := os.Readlink(link); err == nil {
		if !filepath.IsAbs(target) {
			target = filepath.Join(bin, target)
		}
		candidates = append(candidates, target)
	}

	candidates = append(candidates,
		filepath.Join(modules, name, "bin.js"),
		filepath.Join(modules, name, "cli.js"),
		filepath.Join(modules, name, "index.js"),
		filepath.Join(modules, name, "bin", name),
		filepath.Join(modules, name, "bin", name+".js"),
	)

	for _, file := range []string{"bin.js", "cli.js"} {
		pnpm, _ := filepath.Glob(filepath.Join(modules, ".pnpm", name+"@*", "node_modules", name, file))
		candidates = append(candidates, pnpm...)
	}

	for _, path := range candidates {
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return path
		}
	}

	return ""
}

func replace(link, exec string) error {
	if err := os.Remove(link); err != nil {
		return fmt.Errorf("removing %s: %w", link, err)
	}

	r, err := os.Open(exec)
	if err != nil {
		return fmt.Errorf("opening %s: %w", exec, err)
	}
	defer r.Close()

	w, err := os.OpenFile(link, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("creating %s: %w", link, err)
	}

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("copying %s: %w", exec, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", link, err)
	}

	return os.Chmod(link, 0755)
}
