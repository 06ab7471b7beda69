package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	src := "grid_size: 30\nperimeter:\n  rings: 2\n  tier_expr: \"index + 5\"\n"
	if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.GridSize != 30 || got.Perimeter.Rings != 2 || got.Perimeter.TierExpr != "index + 5" {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.BaseSize != 11 || got.BuilderRole != "builder" || got.Perimeter.Gap != 1 {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"syntax":    "grid_size: [",
		"base_size": "grid_size: 10\nbase_size: 11\n",
		"tick":      "tick_rate_hz: 0\n",
	}
	for name, src := range cases {
		p := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, err := Load(p)
		if err == nil || !strings.HasPrefix(err.Error(), "tuning.yaml:") {
			t.Fatalf("%s: got %v", name, err)
		}
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("got %v", err)
	}
}
