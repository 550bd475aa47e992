package colorconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ironsheep/sep-tools-mcp/internal/logging"
	"github.com/ironsheep/sep-tools-mcp/internal/warn"
)

// DefaultFile is the registry file looked up in the working directory when no
// path is configured.
const DefaultFile = "colours.json"

// Varnish is the channel code that can never be used as a name or alias.
const Varnish = "V"

// Plane indexes the four process-ink planes of a composited canvas.
const (
	PlaneC = iota
	PlaneM
	PlaneY
	PlaneK
	NumPlanes
)

// processNames holds the reserved slot names in plane order.
var processNames = [NumPlanes]string{"C", "M", "Y", "K"}

// Color is one named ink and its contribution to the process inks.
type Color struct {
	// Name is the canonical upper-case name.
	Name string `json:"name"`

	// Multipliers holds the C, M, Y and K contribution of one unit of this ink.
	Multipliers [NumPlanes]float64 `json:"multipliers"`

	// Aliases are the accepted alternative names, upper-cased.
	Aliases []string `json:"aliases,omitempty"`
}

// NewColor returns a colour without aliases. name is upper-cased.
func NewColor(name string, c, m, y, k float64) *Color {
	return &Color{Name: Upper(name), Multipliers: [NumPlanes]float64{c, m, y, k}}
}

// Is reports whether name (any case) is the colour's name or one of its aliases.
func (c *Color) Is(name string) bool {
	if c == nil {
		return false
	}
	name = Upper(name)
	if name == c.Name {
		return true
	}
	for _, a := range c.Aliases {
		if a == name {
			return true
		}
	}
	return false
}

// Upper canonicalises an ink name: surrounding space removed, upper-cased.
func Upper(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

// Registry is the loaded set of colour definitions.
type Registry struct {
	colors   []*Color
	fromFile bool
}

// Default returns the identity CMYK registry. It is the only registry built
// without a source.
func Default() *Registry {
	r := &Registry{colors: make([]*Color, NumPlanes)}
	r.fillReserved()
	return r
}

// Lookup finds a colour by name or alias, case-insensitively.
func (r *Registry) Lookup(name string) (*Color, bool) {
	for _, c := range r.colors {
		if c.Is(name) {
			return c, true
		}
	}
	return nil, false
}

// Colors returns the colours in slot order: C, M, Y, K, then every other
// colour in source order.
func (r *Registry) Colors() []*Color {
	out := make([]*Color, len(r.colors))
	copy(out, r.colors)
	return out
}

// Process returns the colours of the four reserved slots in plane order.
func (r *Registry) Process() [NumPlanes]*Color {
	var out [NumPlanes]*Color
	copy(out[:], r.colors[:NumPlanes])
	return out
}

// IsDefault reports whether no colour came from a registry source.
func (r *Registry) IsDefault() bool {
	return !r.fromFile
}

// Load reads the registry at path. An empty path means DefaultFile in the
// working directory. Problems never fail the load: they are logged, returned
// as warnings, and the identity CMYK colours fill in.
func Load(path string, logger *slog.Logger) (*Registry, warn.List) {
	logger = logging.OrNop(logger)
	if path == "" {
		path = DefaultFile
	}

	f, err := os.Open(path)
	if err != nil {
		var warnings warn.List
		if errors.Is(err, fs.ErrNotExist) {
			warnings.Addf(warn.ConfigWarning, "colours file does not exist at path: %s; loading default CMYK", path)
		} else {
			warnings.Addf(warn.ConfigWarning, "cannot open colours file %s: %v; loading default CMYK", path, err)
		}
		logging.Warn(logger, warnings[0], slog.String("path", path))
		return Default(), warnings
	}
	defer f.Close()

	return LoadReader(f, logger.With(slog.String("path", path)))
}

// document is the on-disk registry layout.
type document struct {
	Colours []json.RawMessage `json:"colours"`
}

// entry is one colour definition as written in the source. Pointers tell a
// missing multiplier from an explicit zero.
type entry struct {
	Name     *string  `json:"name"`
	C        *float64 `json:"cMultiplier"`
	M        *float64 `json:"mMultiplier"`
	Y        *float64 `json:"yMultiplier"`
	K        *float64 `json:"kMultiplier"`
	Aliases  []string `json:"aliases"`
	Aliasses []string `json:"aliasses"`
}

// LoadReader parses a registry document from r.
func LoadReader(r io.Reader, logger *slog.Logger) (*Registry, warn.List) {
	logger = logging.OrNop(logger)
	var warnings warn.List
	report := func(kind warn.Kind, format string, args ...any) {
		warnings.Addf(kind, format, args...)
		logging.Warn(logger, warnings[len(warnings)-1])
	}

	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		report(warn.ConfigWarning, "loading colours file failed, it is most likely ill formed: %v; loading default CMYK", err)
		return Default(), warnings
	}
	if doc.Colours == nil {
		report(warn.ConfigWarning, "colours file has no \"colours\" list; loading default CMYK")
		return Default(), warnings
	}

	reg := &Registry{colors: make([]*Color, NumPlanes)}
	seen := map[string]bool{Varnish: true}

	for i, raw := range doc.Colours {
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			report(warn.ConfigWarning, "colour entry %d is ill formed: %v", i, err)
			continue
		}
		c, err := e.color()
		if err != nil {
			report(warn.ConfigWarning, "colour entry %d: %v", i, err)
			continue
		}
		if seen[c.Name] {
			report(warn.ConfigWarning, "duplicate name or alias: %s", c.Name)
			continue
		}
		seen[c.Name] = true

		aliases := e.Aliases
		if aliases == nil {
			aliases = e.Aliasses
		}
		for _, a := range aliases {
			a = Upper(a)
			if a == "" {
				continue
			}
			if seen[a] {
				report(warn.ConfigWarning, "duplicate alias: %s (colour %s)", a, c.Name)
				continue
			}
			seen[a] = true
			c.Aliases = append(c.Aliases, a)
		}

		reg.place(c)
		reg.fromFile = true
		logger.Debug("colour registered", slog.String("name", c.Name), slog.Any("aliases", c.Aliases))
	}

	reg.fillReserved()
	return reg, warnings
}

// color validates an entry and builds its Color.
func (e entry) color() (*Color, error) {
	if e.Name == nil || Upper(*e.Name) == "" {
		return nil, errors.New("missing name")
	}
	name := Upper(*e.Name)
	mults := [NumPlanes]*float64{e.C, e.M, e.Y, e.K}
	c := &Color{Name: name}
	for i, m := range mults {
		if m == nil {
			return nil, fmt.Errorf("%s: missing %sMultiplier", name, strings.ToLower(processNames[i]))
		}
		if *m < 0 {
			return nil, fmt.Errorf("%s: negative %sMultiplier %g", name, strings.ToLower(processNames[i]), *m)
		}
		c.Multipliers[i] = *m
	}
	return c, nil
}

// place stores c in its reserved slot when it is C, M, Y or K (by name, then
// by alias) and the slot is free; otherwise it is appended.
func (r *Registry) place(c *Color) {
	for i, p := range processNames {
		if c.Name == p && r.colors[i] == nil {
			r.colors[i] = c
			return
		}
	}
	for i, p := range processNames {
		if r.colors[i] == nil && c.Is(p) {
			r.colors[i] = c
			return
		}
	}
	r.colors = append(r.colors, c)
}

// fillReserved synthesises an identity colour for every empty reserved slot.
func (r *Registry) fillReserved() {
	for i, p := range processNames {
		if r.colors[i] != nil {
			continue
		}
		var m [NumPlanes]float64
		m[i] = 1
		r.colors[i] = &Color{Name: p, Multipliers: m}
	}
}
