package simconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// Profile is the flattened view of a config after walking its extends chain.
// Entries are ordered by precedence: the config's own keys first, then each
// parent depth-first left-to-right, then [General]. The first occurrence of
// a key wins.
type Profile struct {
	Config  string
	Entries []*Entry

	byKey map[string]*Entry
}

// Lookup returns the effective entry for key, or nil.
func (p *Profile) Lookup(key string) *Entry {
	return p.byKey[key]
}

// ResultDir returns the effective result directory (`result-dir` key,
// default "results").
func (p *Profile) ResultDir() string {
	if e := p.Lookup("result-dir"); e != nil {
		return unquote(e.Value)
	}
	return "results"
}

// Repeat returns the effective repetition count (`repeat` key, default 1).
func (p *Profile) Repeat() (int, error) {
	e := p.Lookup("repeat")
	if e == nil {
		return 1, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(e.Value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("line %d: invalid repeat value %q", e.Line, e.Value)
	}
	return n, nil
}

// Resolve flattens the named config against its extends chain and [General].
func (d *Document) Resolve(config string) (*Profile, error) {
	if d.Section(config) == nil {
		return nil, fmt.Errorf("unknown config %q", config)
	}

	p := &Profile{Config: config, byKey: make(map[string]*Entry)}
	visiting := make(map[string]bool)

	var walk func(name string) error
	walk = func(name string) error {
		if visiting[name] {
			return fmt.Errorf("extends cycle involving config %q", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		s := d.Section(name)
		if s == nil {
			return fmt.Errorf("config %q extends unknown config %q", config, name)
		}
		for _, e := range s.Entries {
			if _, ok := p.byKey[e.Key]; ok {
				continue
			}
			p.byKey[e.Key] = e
			p.Entries = append(p.Entries, e)
		}

		if ext := s.Lookup("extends"); ext != nil {
			for _, parent := range strings.Split(ext.Value, ",") {
				parent = strings.TrimSpace(parent)
				if parent == "" {
					return fmt.Errorf("line %d: empty extends target", ext.Line)
				}
				if err := walk(parent); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(config); err != nil {
		return nil, err
	}

	if general := d.Section(GeneralSection); general != nil && config != GeneralSection {
		for _, e := range general.Entries {
			if _, ok := p.byKey[e.Key]; ok {
				continue
			}
			p.byKey[e.Key] = e
			p.Entries = append(p.Entries, e)
		}
	}

	return p, nil
}

// unquote strips one level of surrounding double quotes, if present.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
