// Package catalogs loads the base layout template and the per-type structure
// rules. Embedded defaults are used for any file a config directory omits.
package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"baseplan.ai/internal/sim/planning/layout"
	"baseplan.ai/internal/sim/structure"
)

//go:embed defaults/*.json
var defaults embed.FS

type Catalogs struct {
	Layout     LayoutCatalog
	Structures StructureCatalog
}

type LayoutCatalog struct {
	Template *layout.Template
	Digest   string
}

type StructureCatalog struct {
	ByType map[structure.Type]StructureDef
	Digest string
}

type StructureDef struct {
	Type               string `json:"type"`
	Allowance          []int  `json:"allowance"`
	Critical           bool   `json:"critical,omitempty"`
	DestroyWhenForeign bool   `json:"destroy_when_foreign,omitempty"`
	Boundary           bool   `json:"boundary,omitempty"`
}

// Allowance is how many structures of t may exist at tier. Tiers past the end
// of the table use the last entry.
func (c StructureCatalog) Allowance(t structure.Type, tier int) int {
	d, ok := c.ByType[t]
	if !ok || len(d.Allowance) == 0 || tier < 0 {
		return 0
	}
	if tier >= len(d.Allowance) {
		tier = len(d.Allowance) - 1
	}
	return d.Allowance[tier]
}

func (c StructureCatalog) Critical(t structure.Type) bool { return c.ByType[t].Critical }

func (c StructureCatalog) DestroyWhenForeign(t structure.Type) bool {
	return c.ByType[t].DestroyWhenForeign
}

func (c StructureCatalog) Boundary(t structure.Type) bool { return c.ByType[t].Boundary }

// Defs lists the definitions in canonical type order.
func (c StructureCatalog) Defs() []StructureDef {
	out := make([]StructureDef, 0, len(c.ByType))
	for _, t := range structure.All() {
		if d, ok := c.ByType[t]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Defaults loads only the embedded catalogs.
func Defaults() (*Catalogs, error) { return Load("") }

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadStructures(configDir, &c.Structures); err != nil {
		return nil, err
	}
	if err := loadLayout(configDir, &c.Layout); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// readFile prefers configDir/name and falls back to the embedded copy.
func readFile(configDir, name string) ([]byte, error) {
	if configDir != "" {
		raw, err := os.ReadFile(filepath.Join(configDir, name))
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return defaults.ReadFile("defaults/" + name)
}

func validate(name string, raw []byte) error {
	schemaRaw, err := defaults.ReadFile("defaults/" + schemaName(name))
	if err != nil {
		return err
	}
	url := "https://baseplan.ai/schemas/" + schemaName(name)
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource(url, bytes.NewReader(schemaRaw)); err != nil {
		return fmt.Errorf("%s: %w", schemaName(name), err)
	}
	s, err := comp.Compile(url)
	if err != nil {
		return fmt.Errorf("%s: %w", schemaName(name), err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func schemaName(name string) string {
	return name[:len(name)-len(filepath.Ext(name))] + ".schema.json"
}

func loadStructures(configDir string, out *StructureCatalog) error {
	raw, err := readFile(configDir, "structures.json")
	if err != nil {
		return err
	}
	if err := validate("structures.json", raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []StructureDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("structures.json: %w", err)
	}
	out.ByType = map[structure.Type]StructureDef{}
	for _, d := range defs {
		t, err := structure.Parse(d.Type)
		if err != nil {
			return fmt.Errorf("structures.json: %w", err)
		}
		if _, dup := out.ByType[t]; dup {
			return fmt.Errorf("structures.json: duplicate %s", t)
		}
		out.ByType[t] = d
	}
	return nil
}

func loadLayout(configDir string, out *LayoutCatalog) error {
	raw, err := readFile(configDir, "layout.json")
	if err != nil {
		return err
	}
	if err := validate("layout.json", raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var tpl layout.Template
	if err := json.Unmarshal(raw, &tpl); err != nil {
		return fmt.Errorf("layout.json: %w", err)
	}
	if err := tpl.Validate(); err != nil {
		return fmt.Errorf("layout.json: %w", err)
	}
	out.Template = &tpl
	return nil
}
