// Package fstab reads and edits /etc/fstab while preserving lines it does not
// touch, comments included.
package fstab

import (
	"fmt"
	"strings"

	"github.com/blueboxgroup/ursula/internal/fileutils"
)

// Path is the host location of the table.
const Path = "/etc/fstab"

// Entry is one mount line.
type Entry struct {
	Spec    string
	File    string
	VfsType string
	MntOps  string
	Freq    int
	PassNo  int
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %s %s %s %d %d", e.Spec, e.File, e.VfsType, e.MntOps, e.Freq, e.PassNo)
}

// Table is a parsed fstab. Lines are kept verbatim.
type Table struct {
	lines []string
}

// Parse splits data into lines, dropping the trailing empty line.
func Parse(data []byte) *Table {
	s := strings.TrimRight(string(data), "\n")
	if s == "" {
		return &Table{}
	}
	return &Table{lines: strings.Split(s, "\n")}
}

// Read loads the table below root. A missing file is an empty table.
func Read(root fileutils.Root) (*Table, error) {
	data, err := root.ReadFile(Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", Path, err)
	}
	return Parse(data), nil
}

// Lines returns the lines of the table.
func (t *Table) Lines() []string { return append([]string(nil), t.lines...) }

// Grep returns the lines containing substr.
func (t *Table) Grep(substr string) []string {
	var out []string
	for _, l := range t.lines {
		if strings.Contains(l, substr) {
			out = append(out, l)
		}
	}
	return out
}

// Contains reports whether any line mentions substr.
func (t *Table) Contains(substr string) bool {
	return len(t.Grep(substr)) > 0
}

// RemoveMatching drops every line containing substr and reports how many were
// dropped.
func (t *Table) RemoveMatching(substr string) int {
	kept := t.lines[:0]
	for _, l := range t.lines {
		if !strings.Contains(l, substr) {
			kept = append(kept, l)
		}
	}
	n := len(t.lines) - len(kept)
	t.lines = kept
	return n
}

// Append adds a raw line.
func (t *Table) Append(line string) {
	t.lines = append(t.lines, line)
}

// AppendEntry adds e unless a line already mentions its spec.
func (t *Table) AppendEntry(e Entry) bool {
	if t.Contains(e.Spec) {
		return false
	}
	t.Append(e.String())
	return true
}

// Bytes encodes the table with a trailing newline.
func (t *Table) Bytes() []byte {
	if len(t.lines) == 0 {
		return nil
	}
	return []byte(strings.Join(t.lines, "\n") + "\n")
}

// Write stores the table below root.
func (t *Table) Write(root fileutils.Root) error {
	if err := root.WriteFile(Path, t.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", Path, err)
	}
	return nil
}

// ParseEntry parses a non-comment line into its fields.
func ParseEntry(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Entry{}, false
	}
	f := strings.Fields(line)
	if len(f) < 4 {
		return Entry{}, false
	}
	e := Entry{Spec: f[0], File: f[1], VfsType: f[2], MntOps: f[3]}
	if len(f) > 4 {
		fmt.Sscanf(f[4], "%d", &e.Freq)
	}
	if len(f) > 5 {
		fmt.Sscanf(f[5], "%d", &e.PassNo)
	}
	return e, true
}
