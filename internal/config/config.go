// Package config loads the immutable run configuration. Components
// receive their knobs at construction; nothing reads configuration from
// ambient state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fx-regime-lab/internal/domain"
)

// Config is the full application configuration.
type Config struct {
	Environment string `yaml:"environment"`

	// StartDate bounds the history fetched on ingest, YYYY-MM-DD.
	StartDate string `yaml:"start_date"`

	Pairs       []PairConfig   `yaml:"pairs"`
	Instruments []Instrument   `yaml:"instruments"`
	Spreads     []SpreadConfig `yaml:"spreads"`

	Thresholds struct {
		HighCrowding float64 `yaml:"high_crowding"`
		LowCrowding  float64 `yaml:"low_crowding"`
		FlatSpreadPP float64 `yaml:"flat_spread_pp"`
		CrisisVolPct float64 `yaml:"crisis_vol_pct"`
	} `yaml:"thresholds"`

	Windows struct {
		RankWindow   int `yaml:"rank_window"`
		RankMinObs   int `yaml:"rank_min_obs"`
		LookbackDays int `yaml:"lookback_days"`
	} `yaml:"windows"`

	Sources struct {
		FREDAPIKey       string `yaml:"fred_api_key"`
		FREDBaseURL      string `yaml:"fred_base_url"`
		ECBBaseURL       string `yaml:"ecb_base_url"`
		MOFHistoricalURL string `yaml:"mof_historical_url"`
		MOFCurrentURL    string `yaml:"mof_current_url"`
		YahooBaseURL     string `yaml:"yahoo_base_url"`
		CFTCBaseURL      string `yaml:"cftc_base_url"`
	} `yaml:"sources"`

	Storage struct {
		// Backend is "memory" or "db". With "db", raw observations go
		// to PostgreSQL and derived series to ClickHouse.
		Backend       string `yaml:"backend"`
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"`
	} `yaml:"storage"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json or console
	} `yaml:"logging"`
}

// PairConfig describes one tracked pair.
type PairConfig struct {
	ID             string `yaml:"id"`
	QuoteDirection int    `yaml:"quote_direction"`
	SpreadID       string `yaml:"spread_id"`
	YahooTicker    string `yaml:"yahoo_ticker"`
	CFTCMarket     string `yaml:"cftc_market"`
}

// Instrument maps a yield instrument to its provider series.
type Instrument struct {
	ID     string `yaml:"id"`
	Source string `yaml:"source"` // fred, ecb, mof
	Series string `yaml:"series"` // FRED series id, ECB SDMX key, or MOF tenor column
}

// SpreadConfig declares one rate differential.
type SpreadConfig struct {
	ID         string `yaml:"id"`
	Minuend    string `yaml:"minuend"`
	Subtrahend string `yaml:"subtrahend"`
}

// Load reads and parses a YAML configuration file, applies defaults and
// validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Env var wins over the file for the one secret.
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		c.Sources.FREDAPIKey = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// Default returns the built-in configuration: the desk's standard
// pairs, instruments and spread set with memory storage.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.StartDate == "" {
		c.StartDate = "2020-01-01"
	}
	if len(c.Pairs) == 0 {
		c.Pairs = []PairConfig{
			{ID: "EURUSD", QuoteDirection: -1, SpreadID: "US_DE_10Y_spread",
				YahooTicker: "EURUSD=X", CFTCMarket: "EURO FX - CHICAGO MERCANTILE EXCHANGE"},
			{ID: "USDJPY", QuoteDirection: 1, SpreadID: "US_JP_10Y_spread",
				YahooTicker: "JPY=X", CFTCMarket: "JAPANESE YEN - CHICAGO MERCANTILE EXCHANGE"},
			{ID: "DXY", QuoteDirection: 1, YahooTicker: "DX-Y.NYB"},
		}
	}
	if len(c.Instruments) == 0 {
		c.Instruments = []Instrument{
			{ID: "US_2Y", Source: "fred", Series: "DGS2"},
			{ID: "US_10Y", Source: "fred", Series: "DGS10"},
			{ID: "DE_2Y", Source: "ecb", Series: "YC/B.U2.EUR.4F.G_N_A.SV_C_YM.SR_2Y"},
			{ID: "DE_10Y", Source: "ecb", Series: "YC/B.U2.EUR.4F.G_N_A.SV_C_YM.SR_10Y"},
			{ID: "JP_2Y", Source: "mof", Series: "2Y"},
			{ID: "JP_10Y", Source: "mof", Series: "10Y"},
		}
	}
	if len(c.Spreads) == 0 {
		for _, def := range domain.DefaultSpreadDefinitions {
			c.Spreads = append(c.Spreads, SpreadConfig{
				ID: def.SpreadID, Minuend: def.Minuend, Subtrahend: def.Subtrahend,
			})
		}
	}
	if c.Thresholds.HighCrowding == 0 {
		c.Thresholds.HighCrowding = 85
	}
	if c.Thresholds.LowCrowding == 0 {
		c.Thresholds.LowCrowding = 15
	}
	if c.Thresholds.FlatSpreadPP == 0 {
		c.Thresholds.FlatSpreadPP = 0.10
	}
	if c.Thresholds.CrisisVolPct == 0 {
		c.Thresholds.CrisisVolPct = 90
	}
	if c.Windows.RankWindow == 0 {
		c.Windows.RankWindow = 156
	}
	if c.Windows.RankMinObs == 0 {
		c.Windows.RankMinObs = 52
	}
	if c.Windows.LookbackDays == 0 {
		c.Windows.LookbackDays = 252
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Pairs) == 0 {
		return fmt.Errorf("pairs cannot be empty")
	}
	if c.Storage.Backend != "memory" && c.Storage.Backend != "db" {
		return fmt.Errorf("storage.backend must be 'memory' or 'db', got '%s'", c.Storage.Backend)
	}
	if c.Storage.Backend == "db" {
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required with the db backend")
		}
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("storage.clickhouse_dsn is required with the db backend")
		}
	}

	instruments := map[string]struct{}{}
	for _, in := range c.Instruments {
		if in.Source != "fred" && in.Source != "ecb" && in.Source != "mof" {
			return fmt.Errorf("instrument %s: unknown source '%s'", in.ID, in.Source)
		}
		instruments[in.ID] = struct{}{}
	}
	for _, s := range c.Spreads {
		if _, ok := instruments[s.Minuend]; !ok {
			return fmt.Errorf("spread %s: unknown minuend instrument '%s'", s.ID, s.Minuend)
		}
		if _, ok := instruments[s.Subtrahend]; !ok {
			return fmt.Errorf("spread %s: unknown subtrahend instrument '%s'", s.ID, s.Subtrahend)
		}
	}

	spreads := map[string]struct{}{}
	for _, s := range c.Spreads {
		spreads[s.ID] = struct{}{}
	}
	for _, p := range c.Pairs {
		if p.QuoteDirection != 1 && p.QuoteDirection != -1 {
			return fmt.Errorf("pair %s: quote_direction must be 1 or -1", p.ID)
		}
		if p.SpreadID != "" {
			if _, ok := spreads[p.SpreadID]; !ok {
				return fmt.Errorf("pair %s: unknown spread '%s'", p.ID, p.SpreadID)
			}
		}
	}

	if c.Thresholds.LowCrowding >= c.Thresholds.HighCrowding {
		return fmt.Errorf("thresholds: low_crowding must be below high_crowding")
	}

	return nil
}

// DomainPairs converts pair configs to domain pairs.
func (c *Config) DomainPairs() []domain.Pair {
	pairs := make([]domain.Pair, len(c.Pairs))
	for i, p := range c.Pairs {
		pairs[i] = domain.Pair{ID: p.ID, QuoteDirection: p.QuoteDirection, SpreadID: p.SpreadID}
	}
	return pairs
}

// SpreadDefinitions converts spread configs to domain definitions.
func (c *Config) SpreadDefinitions() []domain.SpreadDefinition {
	defs := make([]domain.SpreadDefinition, len(c.Spreads))
	for i, s := range c.Spreads {
		defs[i] = domain.SpreadDefinition{SpreadID: s.ID, Minuend: s.Minuend, Subtrahend: s.Subtrahend}
	}
	return defs
}

// SpreadIDs returns the configured spread ids in declaration order.
func (c *Config) SpreadIDs() []string {
	ids := make([]string, len(c.Spreads))
	for i, s := range c.Spreads {
		ids[i] = s.ID
	}
	return ids
}
