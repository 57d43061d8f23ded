package simconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// GeneralSection is the name under which `[General]` keys are stored.
const GeneralSection = "General"

// Entry is a single `key = value` line within a section.
type Entry struct {
	Key   string
	Value string
	Line  int
}

// Section is a named configuration block and its entries in file order.
// Duplicate keys within one section keep the last occurrence.
type Section struct {
	Name    string
	Entries []*Entry

	byKey map[string]*Entry
}

// Lookup returns the entry for key, or nil if the section does not set it.
func (s *Section) Lookup(key string) *Entry {
	return s.byKey[key]
}

// Document is a parsed ini file.
type Document struct {
	Path     string
	Sections []*Section

	byName map[string]*Section
}

// Section returns the named section, or nil.
func (d *Document) Section(name string) *Section {
	return d.byName[name]
}

// ConfigNames returns the names of all non-General sections in file order.
func (d *Document) ConfigNames() []string {
	var names []string
	for _, s := range d.Sections {
		if s.Name != GeneralSection {
			names = append(names, s.Name)
		}
	}
	return names
}

// Load reads and parses the ini file at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open simulation config: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse reads an ini document from r.
func Parse(r io.Reader) (*Document, error) {
	doc := &Document{byName: make(map[string]*Section)}
	var current *Section

	section := func(name string, line int) (*Section, error) {
		if existing, ok := doc.byName[name]; ok {
			if name != GeneralSection {
				return nil, fmt.Errorf("line %d: duplicate section [%s]", line, name)
			}
			return existing, nil
		}
		s := &Section{Name: name, byKey: make(map[string]*Entry)}
		doc.Sections = append(doc.Sections, s)
		doc.byName[name] = s
		return s, nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("line %d: malformed section header %q", lineNo, line)
			}
			name := strings.TrimSpace(line[1 : len(line)-1])
			name = strings.TrimSpace(strings.TrimPrefix(name, "Config "))
			if name == "" {
				return nil, fmt.Errorf("line %d: empty section name", lineNo)
			}
			var err error
			current, err = section(name, lineNo)
			if err != nil {
				return nil, err
			}
			continue
		}

		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, fmt.Errorf("line %d: expected key = value, got %q", lineNo, line)
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNo)
		}

		if current == nil {
			// Keys before any section header belong to General.
			var err error
			current, err = section(GeneralSection, lineNo)
			if err != nil {
				return nil, err
			}
		}

		entry := &Entry{Key: key, Value: value, Line: lineNo}
		if prev, ok := current.byKey[key]; ok {
			*prev = *entry
		} else {
			current.Entries = append(current.Entries, entry)
			current.byKey[key] = entry
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return doc, nil
}

// stripComment removes a trailing # comment, honoring double-quoted strings.
func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return line[:i]
			}
		}
	}
	return line
}
