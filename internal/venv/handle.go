package venv

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Handle identifies a provisioned environment.
type Handle struct {
	// Dir is the environment root.
	Dir string
	// BinDir holds the environment's executables (bin or Scripts).
	BinDir string
	// Python is the environment's interpreter.
	Python string
	// Created reports whether this run created the environment.
	Created bool

	extra map[string]string
}

// Environ derives a child process environment from base. VIRTUAL_ENV points
// at the environment, BinDir is prepended to PATH, and PYTHONHOME is removed.
// Forwarded values never replace variables already present in base.
func (h Handle) Environ(base []string) []string {
	out := make([]string, 0, len(base)+len(h.extra)+2)
	present := make(map[string]struct{}, len(base))
	path := ""
	for _, entry := range base {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		switch normalizeKey(key) {
		case normalizeKey("PATH"):
			path = value
			continue
		case normalizeKey("VIRTUAL_ENV"), normalizeKey("PYTHONHOME"):
			continue
		}
		present[normalizeKey(key)] = struct{}{}
		out = append(out, entry)
	}

	if path == "" {
		path = h.BinDir
	} else {
		path = h.BinDir + string(os.PathListSeparator) + path
	}
	out = append(out, "VIRTUAL_ENV="+h.Dir, "PATH="+path)

	keys := make([]string, 0, len(h.extra))
	for key := range h.extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch normalizeKey(key) {
		case normalizeKey("PATH"), normalizeKey("VIRTUAL_ENV"), normalizeKey("PYTHONHOME"):
			continue
		}
		if _, ok := present[normalizeKey(key)]; ok {
			continue
		}
		out = append(out, key+"="+h.extra[key])
	}
	return out
}

// WithForwarded returns a copy of h that forwards values to child processes.
func (h Handle) WithForwarded(values map[string]string) Handle {
	if len(values) == 0 {
		return h
	}
	merged := make(map[string]string, len(h.extra)+len(values))
	for k, v := range h.extra {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}
	h.extra = merged
	return h
}

func normalizeKey(key string) string {
	if runtime.GOOS == "windows" {
		return strings.ToUpper(key)
	}
	return key
}

// Layout returns the executable directory and interpreter path for an
// environment rooted at dir. An existing Scripts/python.exe wins so that an
// environment created on Windows is recognised wherever it is inspected.
func Layout(dir string) (binDir, python string) {
	winBin := filepath.Join(dir, "Scripts")
	winPython := filepath.Join(winBin, "python.exe")
	if fileExists(winPython) {
		return winBin, winPython
	}
	if runtime.GOOS == "windows" {
		return winBin, winPython
	}
	binDir = filepath.Join(dir, "bin")
	return binDir, filepath.Join(binDir, "python")
}

// Exists reports whether dir already holds an environment.
func Exists(dir string) bool {
	if fileExists(filepath.Join(dir, "pyvenv.cfg")) {
		return true
	}
	_, python := Layout(dir)
	return fileExists(python)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
