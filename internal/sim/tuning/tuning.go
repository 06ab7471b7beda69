package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	GridSize int `yaml:"grid_size"`
	BaseSize int `yaml:"base_size"`
	MaxTier  int `yaml:"max_tier"`

	TickRateHz          int `yaml:"tick_rate_hz"`
	ReconcileEveryTicks int `yaml:"reconcile_every_ticks"`
	SnapshotEveryTicks  int `yaml:"snapshot_every_ticks"`

	BuilderRole       string `yaml:"builder_role"`
	CriticalGoodsMin  int    `yaml:"critical_goods_min"`
	SiteLimit         int    `yaml:"site_limit"`
	LinkSourceRadius  int    `yaml:"link_source_radius"`
	DelayRetryPerTick int    `yaml:"delay_retry_per_tick"`
	AutoPlace         bool   `yaml:"auto_place"`
	BuildPerTick      int    `yaml:"build_per_tick"`

	Perimeter Perimeter `yaml:"perimeter"`
	Roads     Roads     `yaml:"roads"`
}

type Perimeter struct {
	Rings      int    `yaml:"rings"`
	Gap        int    `yaml:"gap"`
	TierStride int    `yaml:"tier_stride"`
	TierOffset int    `yaml:"tier_offset"`
	TierExpr   string `yaml:"tier_expr"`
}

type Roads struct {
	TierStride int    `yaml:"tier_stride"`
	TierOffset int    `yaml:"tier_offset"`
	TierExpr   string `yaml:"tier_expr"`
}

func Defaults() Tuning {
	return Tuning{
		GridSize:            50,
		BaseSize:            11,
		MaxTier:             8,
		TickRateHz:          5,
		ReconcileEveryTicks: 20,
		SnapshotEveryTicks:  600,
		BuilderRole:         "builder",
		CriticalGoodsMin:    100,
		SiteLimit:           100,
		LinkSourceRadius:    2,
		DelayRetryPerTick:   4,
		AutoPlace:           true,
		BuildPerTick:        1,
		Perimeter: Perimeter{
			Rings:      1,
			Gap:        1,
			TierStride: 2,
			TierOffset: 4,
		},
		Roads: Roads{
			TierExpr: "[3, 4, 6][index]",
		},
	}
}

// Load reads path over Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.GridSize < 3:
		return fmt.Errorf("grid_size must be >= 3")
	case t.BaseSize < 1 || t.BaseSize > t.GridSize:
		return fmt.Errorf("base_size must be in [1, grid_size]")
	case t.MaxTier < 1:
		return fmt.Errorf("max_tier must be >= 1")
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0")
	case t.ReconcileEveryTicks <= 0:
		return fmt.Errorf("reconcile_every_ticks must be > 0")
	case t.SnapshotEveryTicks < 0:
		return fmt.Errorf("snapshot_every_ticks must be >= 0")
	case t.BuilderRole == "":
		return fmt.Errorf("builder_role must be set")
	case t.SiteLimit < 0:
		return fmt.Errorf("site_limit must be >= 0")
	case t.LinkSourceRadius < 0:
		return fmt.Errorf("link_source_radius must be >= 0")
	case t.DelayRetryPerTick < 0:
		return fmt.Errorf("delay_retry_per_tick must be >= 0")
	case t.BuildPerTick < 0:
		return fmt.Errorf("build_per_tick must be >= 0")
	case t.Perimeter.Rings < 0 || t.Perimeter.Gap < 0:
		return fmt.Errorf("perimeter rings and gap must be >= 0")
	}
	return nil
}
