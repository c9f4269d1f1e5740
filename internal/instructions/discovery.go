// Package instructions finds the standing instructions sent as the system
// message of a new session.
package instructions

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// Filename 是每个目录中的说明文件名称。
	Filename = "TOOLBRIDGE.md"
	// OverrideFilename replaces Filename, and everything above it, for its directory.
	OverrideFilename = "TOOLBRIDGE.override.md"

	maxFileBytes = 32 * 1024
)

// Discover joins ~/.toolbridge/TOOLBRIDGE.md with the instruction files found
// from the filesystem root down to workdir. A directory's override file drops
// everything collected before it.
func Discover(workdir string) string {
	home, _ := os.UserHomeDir()
	return discover(home, workdir)
}

func discover(home, workdir string) string {
	var parts []string
	if home != "" {
		if text := readCapped(filepath.Join(home, ".toolbridge", Filename)); text != "" {
			parts = append(parts, text)
		}
	}

	dir := workdir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	var chain []string
	for {
		chain = append(chain, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if text := readCapped(filepath.Join(chain[i], OverrideFilename)); text != "" {
			parts = []string{text}
			continue
		}
		if text := readCapped(filepath.Join(chain[i], Filename)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func readCapped(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if len(data) > maxFileBytes {
		data = data[:maxFileBytes]
	}
	return strings.TrimSpace(string(data))
}
