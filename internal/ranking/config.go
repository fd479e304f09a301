package ranking

// RerankConfig holds the popularity weighting parameters.
type RerankConfig struct {
	BaseViews float64 `yaml:"base_views"` // default: 1000
	Weight    float64 `yaml:"weight"`     // default: 0.6
}

// DefaultRerankConfig returns the production weighting.
func DefaultRerankConfig() *RerankConfig {
	return &RerankConfig{
		BaseViews: 1000,
		Weight:    0.6,
	}
}

// ApplyDefaults fills zero values with defaults. A zero weight is kept only when
// BaseViews is set, so a config can disable popularity explicitly.
func (c *RerankConfig) ApplyDefaults() {
	d := DefaultRerankConfig()
	if c.BaseViews <= 0 {
		c.BaseViews = d.BaseViews
		if c.Weight == 0 {
			c.Weight = d.Weight
		}
	}
	if c.Weight < 0 {
		c.Weight = d.Weight
	}
}
