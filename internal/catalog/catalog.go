// Package catalog loads screen definitions and matches live screen buffers
// against them. A catalog is read-only after load; the optional watcher
// swaps in a freshly loaded catalog when the source directory changes.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"greenscreen/internal/tn5250"
)

// Identifier anchors a screen: the expected text at (row, col) names the
// screen uniquely.
type Identifier struct {
	Row          int    `json:"row" yaml:"row"`
	Col          int    `json:"col" yaml:"col"`
	ExpectedText string `json:"expected_text" yaml:"expected_text"`
}

// Field is one named field on a screen. Row/Col locate the attribute byte;
// the data starts one column later.
type Field struct {
	Name         string `json:"name" yaml:"name"`
	Type         string `json:"type" yaml:"type"` // "input" or "display"
	Row          int    `json:"row" yaml:"row"`
	Col          int    `json:"col" yaml:"col"`
	Length       int    `json:"length" yaml:"length"`
	Attributes   string `json:"attributes,omitempty" yaml:"attributes,omitempty"` // e.g. "hidden"
	DefaultValue string `json:"default_value,omitempty" yaml:"default_value,omitempty"`
}

// IsInput reports whether the field accepts operator input.
func (f Field) IsInput() bool { return f.Type == "input" }

// IsHidden reports whether the field renders as nondisplay.
func (f Field) IsHidden() bool { return f.Attributes == "hidden" }

// StaticText is a literal placed on the screen.
type StaticText struct {
	Row  int    `json:"row" yaml:"row"`
	Col  int    `json:"col" yaml:"col"`
	Text string `json:"text" yaml:"text"`
}

// Screen is one catalog entry.
type Screen struct {
	ID         string       `json:"screen_id" yaml:"screen_id"`
	Identifier Identifier   `json:"identifier" yaml:"identifier"`
	Fields     []Field      `json:"fields" yaml:"fields"`
	StaticText []StaticText `json:"static_text,omitempty" yaml:"static_text,omitempty"`
}

// FieldByName returns the named field, or nil.
func (s *Screen) FieldByName(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// InputFields returns the input-typed fields in (row, col) order.
func (s *Screen) InputFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.IsInput() {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Validate checks the geometric invariants of one screen definition.
func (s *Screen) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("screen without screen_id")
	}
	id := s.Identifier
	if !tn5250.ValidPosition(id.Row, id.Col) {
		return fmt.Errorf("screen %s: identifier position (%d,%d) off screen", s.ID, id.Row, id.Col)
	}
	if id.ExpectedText == "" {
		return fmt.Errorf("screen %s: identifier has no expected_text", s.ID)
	}
	seen := map[string]bool{}
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("screen %s: field without name", s.ID)
		}
		if seen[f.Name] {
			return fmt.Errorf("screen %s: duplicate field name %q", s.ID, f.Name)
		}
		seen[f.Name] = true
		if f.Type != "input" && f.Type != "display" {
			return fmt.Errorf("screen %s: field %s has unknown type %q", s.ID, f.Name, f.Type)
		}
		if !tn5250.ValidPosition(f.Row, f.Col) {
			return fmt.Errorf("screen %s: field %s position (%d,%d) off screen", s.ID, f.Name, f.Row, f.Col)
		}
		if f.Length < 1 {
			return fmt.Errorf("screen %s: field %s has length %d", s.ID, f.Name, f.Length)
		}
		// Rendering pads or truncates but never runs off the row; the
		// attribute byte plus the data must fit.
		if f.Col+f.Length > tn5250.ScreenCols {
			return fmt.Errorf("screen %s: field %s overruns row %d (col %d + len %d)",
				s.ID, f.Name, f.Row, f.Col, f.Length)
		}
	}
	for _, st := range s.StaticText {
		if !tn5250.ValidPosition(st.Row, st.Col) {
			return fmt.Errorf("screen %s: static text position (%d,%d) off screen", s.ID, st.Row, st.Col)
		}
	}
	return nil
}

// Catalog is an immutable set of screens keyed by ID.
type Catalog struct {
	screens map[string]*Screen
	ordered []*Screen
}

// Load reads a catalog from path: either a directory of single-screen
// files or one file holding many. Duplicate screen IDs are fatal.
func Load(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("screen catalog: %w", err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("screen catalog: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".json", ".yaml", ".yml":
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("screen catalog: no screen files under %s", path)
	}

	cat := &Catalog{screens: map[string]*Screen{}}
	for _, file := range files {
		screens, err := loadFile(file)
		if err != nil {
			return nil, err
		}
		for _, s := range screens {
			if err := s.Validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			if _, dup := cat.screens[s.ID]; dup {
				return nil, fmt.Errorf("%s: duplicate screen id %q", file, s.ID)
			}
			cat.screens[s.ID] = s
			cat.ordered = append(cat.ordered, s)
		}
	}
	return cat, nil
}

// catalogFile is the multi-screen file shape.
type catalogFile struct {
	Screens []*Screen `json:"screens" yaml:"screens"`
}

func loadFile(path string) ([]*Screen, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read screen file: %w", err)
	}

	unmarshal := json.Unmarshal
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		unmarshal = yaml.Unmarshal
	}

	var multi catalogFile
	if err := unmarshal(data, &multi); err == nil && len(multi.Screens) > 0 {
		return multi.Screens, nil
	}
	var single Screen
	if err := unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("parse screen file %s: %w", path, err)
	}
	return []*Screen{&single}, nil
}

// Get returns a screen by ID.
func (c *Catalog) Get(id string) (*Screen, bool) {
	s, ok := c.screens[id]
	return s, ok
}

// Screens returns the entries in load order.
func (c *Catalog) Screens() []*Screen { return c.ordered }

// Len returns the number of screens.
func (c *Catalog) Len() int { return len(c.ordered) }

// Identify matches the buffer against the catalog: a screen matches when
// the text at its identifier anchor equals the expected text, case-folded
// and with trailing spaces trimmed. The first matching entry wins.
func (c *Catalog) Identify(screen *tn5250.Screen) *Screen {
	for _, s := range c.ordered {
		want := s.Identifier.ExpectedText
		got := screen.ReadText(s.Identifier.Row, s.Identifier.Col, len(want))
		if strings.EqualFold(strings.TrimRight(got, " "), strings.TrimRight(want, " ")) {
			return s
		}
	}
	return nil
}

// IsScreen reports whether the buffer currently shows the screen with the
// given ID.
func (c *Catalog) IsScreen(screen *tn5250.Screen, id string) bool {
	s := c.Identify(screen)
	return s != nil && s.ID == id
}
