package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

// programGlob selects program files below a directory pattern.
const programGlob = "**/*.{yaml,yml}"

// Loader resolves program paths and glob patterns into programs
type Loader struct {
	Patterns []string
}

// Resolve expands the patterns into program file paths, sorted and without
// duplicates. A plain directory stands for every program file below it.
func (l *Loader) Resolve() ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range l.Patterns {
		matches, err := resolvePattern(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads every resolved program file
func (l *Loader) Load() ([]*Program, error) {
	paths, err := l.Resolve()
	if err != nil {
		return nil, err
	}

	progs := make([]*Program, 0, len(paths))
	for _, path := range paths {
		prog, err := LoadProgram(path)
		if err != nil {
			return nil, fmt.Errorf("load program: %w", err)
		}
		if prog.Name == "" {
			prog.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		progs = append(progs, prog)
	}
	return progs, nil
}

func resolvePattern(pattern string) ([]string, error) {
	if !containsGlob(pattern) {
		info, err := os.Stat(pattern)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return []string{filepath.Clean(pattern)}, nil
		}
		pattern = filepath.Join(pattern, programGlob)
	}

	// doublestar for ** support
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no programs match %s", internalerr.ErrNotFound, pattern)
	}
	return files, nil
}

func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
