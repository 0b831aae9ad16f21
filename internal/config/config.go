// Package config defines the configuration model of a carprep run. A pipeline
// file is decoded from JSON or YAML (chosen by extension) into Pipeline and
// passed through the program without further glue code.
//
// Example (trimmed, YAML):
//
//	job: car-prices
//	source: { dir: data/raw, pattern: "*.csv" }
//	output: { path: data/final.csv, vocabulary_path: data/vocabulary.json }
//	filter: { year_min: 1980, year_max: 2024, mileage_max: 200000, mpg_max: 100 }
//	storage: { kind: postgres, dsn: "postgresql://...", table: public.car_prices }
//
// Every section has a default; see Default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run for metrics labels and log fields.
	Job string `yaml:"job" json:"job"`

	Source  Source        `yaml:"source" json:"source"`
	Output  Output        `yaml:"output" json:"output"`
	Clean   Clean         `yaml:"clean" json:"clean"`
	Rectify Rectify       `yaml:"rectify" json:"rectify"`
	Impute  Impute        `yaml:"impute" json:"impute"`
	Encode  Encode        `yaml:"encode" json:"encode"`
	Filter  Filter        `yaml:"filter" json:"filter"`
	Prune   Prune         `yaml:"prune" json:"prune"`
	Runtime RuntimeConfig `yaml:"runtime" json:"runtime"`
	Storage Storage       `yaml:"storage" json:"storage"`
	Metrics Metrics       `yaml:"metrics" json:"metrics"`
	Monitor Monitor       `yaml:"monitor" json:"monitor"`
}

// Source locates the per-manufacturer listing files.
type Source struct {
	// Dir is the directory holding one CSV per manufacturer.
	Dir string `yaml:"dir" json:"dir"`
	// Pattern is a filepath.Match glob applied to file names. Default "*.csv".
	Pattern string `yaml:"pattern" json:"pattern"`
}

// Output names the published artifacts.
type Output struct {
	// Path is the FinalDataset CSV.
	Path string `yaml:"path" json:"path"`
	// VocabularyPath is the encoding vocabulary JSON. Defaults to
	// "<dir of Path>/vocabulary.json".
	VocabularyPath string `yaml:"vocabulary_path" json:"vocabulary_path"`
	// CombinedPath optionally publishes the merged, pre-rectification table.
	CombinedPath string `yaml:"combined_path" json:"combined_path"`
}

// Clean configures the per-source cleaner.
type Clean struct {
	// CurrencySymbol is stripped from header labels and money cells.
	CurrencySymbol string `yaml:"currency_symbol" json:"currency_symbol"`
	// CurrencyColumns hold money values ("£12,500").
	CurrencyColumns []string `yaml:"currency_columns" json:"currency_columns"`
	// Numeric lists plain numeric columns coerced to float.
	Numeric []string `yaml:"numeric" json:"numeric"`
}

// Rectify configures schema reconciliation after merging.
type Rectify struct {
	// Aliases maps alias column → canonical column.
	Aliases map[string]string `yaml:"aliases" json:"aliases"`
	// Drop lists redundant or legacy columns removed when present.
	Drop []string `yaml:"drop" json:"drop"`
	// MakeMapping corrects typos in the make column.
	MakeMapping map[string]string `yaml:"make_mapping" json:"make_mapping"`
}

// Impute configures the imputer.
type Impute struct {
	Median []string `yaml:"median" json:"median"`
	Mode   []string `yaml:"mode" json:"mode"`
	// Fallback holds opt-in fill values used when a designated column is
	// absent or entirely missing. Without one, such a column aborts the run.
	Fallback Options `yaml:"fallback" json:"fallback"`
}

// Encode configures the categorical encoder.
type Encode struct {
	Columns []string `yaml:"columns" json:"columns"`
	// FrozenVocabulary, when set, loads a published vocabulary instead of
	// deriving one from data.
	FrozenVocabulary string `yaml:"frozen_vocabulary" json:"frozen_vocabulary"`
}

// Filter holds the plausible-range bounds.
type Filter struct {
	YearMin    float64 `yaml:"year_min" json:"year_min"`
	YearMax    float64 `yaml:"year_max" json:"year_max"`
	MileageMax float64 `yaml:"mileage_max" json:"mileage_max"`
	MPGMax     float64 `yaml:"mpg_max" json:"mpg_max"`
	// PriceZScoreMax drops rows whose |z(price)| is not below it. 0 disables.
	PriceZScoreMax float64 `yaml:"price_zscore_max" json:"price_zscore_max"`
}

// Prune lists the low-frequency columns removed from the final dataset.
type Prune struct {
	Columns []string `yaml:"columns" json:"columns"`
}

// RuntimeConfig controls concurrency.
type RuntimeConfig struct {
	// Workers bounds concurrent per-source parse+clean. 0 means GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`
}

// Storage selects an optional database sink for the final dataset and the
// drift summaries.
type Storage struct {
	// Kind selects the backend: postgres, sqlite, mysql, mssql. Empty disables
	// database loading.
	Kind string `yaml:"kind" json:"kind"`
	DSN  string `yaml:"dsn" json:"dsn"`
	// Table receives the final dataset rows.
	Table string `yaml:"table" json:"table"`
	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS before loading.
	AutoCreateTable bool `yaml:"auto_create_table" json:"auto_create_table"`
	BatchSize       int  `yaml:"batch_size" json:"batch_size"`
	// MetricsTable receives drift summaries. Default "car_metrics".
	MetricsTable string `yaml:"metrics_table" json:"metrics_table"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "", "none", "pushgateway" or "datadog".
	Backend        string `yaml:"backend" json:"backend"`
	PushgatewayURL string `yaml:"pushgateway_url" json:"pushgateway_url"`
	DatadogAddr    string `yaml:"datadog_addr" json:"datadog_addr"`
}

// Monitor configures the drift summary.
type Monitor struct {
	// Reference is a published final dataset used as the baseline sample.
	Reference string `yaml:"reference" json:"reference"`
	// PredictionColumn is compared to produce prediction_drift. Default "price".
	PredictionColumn string `yaml:"prediction_column" json:"prediction_column"`
	// Threshold is the p-value below which a column counts as drifted.
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// LargeSample is the reference size above which distance tests
	// (Wasserstein, Jensen-Shannon) replace KS and chi-square.
	LargeSample int `yaml:"large_sample" json:"large_sample"`
	// DistanceThreshold is the normed distance at or above which a column
	// counts as drifted under a distance test.
	DistanceThreshold float64 `yaml:"distance_threshold" json:"distance_threshold"`
}

// Default returns the standard listing-preparation configuration. Source and
// output paths are left empty.
func Default() Pipeline {
	return Pipeline{
		Job:    "carprep",
		Source: Source{Pattern: "*.csv"},
		Clean: Clean{
			CurrencySymbol:  "£",
			CurrencyColumns: []string{"price", "tax", "tax_"},
			Numeric:         []string{"mpg", "enginesize"},
		},
		Rectify: Rectify{
			Aliases: map[string]string{"tax_": "tax"},
			Drop: []string{
				"tax()", "fuel_type", "engine_size", "mileage2",
				"fuel_type2", "engine_size2", "reference",
			},
			MakeMapping: map[string]string{
				"unclean focus":  "focus",
				"unclean cclass": "cclass",
			},
		},
		Impute: Impute{
			Median:   []string{"enginesize", "tax", "mpg"},
			Mode:     []string{"fueltype"},
			Fallback: Options{},
		},
		Encode: Encode{Columns: []string{"make", "transmission", "fueltype"}},
		Filter: Filter{YearMin: 1980, YearMax: 2024, MileageMax: 200000, MPGMax: 100},
		Prune: Prune{Columns: []string{
			"transmission_Other", "fueltype_Electric", "fueltype_Other", "model",
		}},
		Storage: Storage{BatchSize: 5000, MetricsTable: "car_metrics"},
		Monitor: Monitor{PredictionColumn: "price", Threshold: 0.05, LargeSample: 1000, DistanceThreshold: 0.1},
	}
}

// Load reads a pipeline file on top of Default. Files ending in .yaml or .yml
// are decoded as YAML, everything else as JSON. Environment overrides are
// applied last.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	p := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &p)
	default:
		err = json.Unmarshal(b, &p)
	}
	if err != nil {
		return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if p.Impute.Fallback == nil {
		p.Impute.Fallback = Options{}
	}
	ApplyEnv(&p, os.Getenv)
	return p, nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func ApplyEnv(p *Pipeline, getenv func(string) string) {
	if v := getenv("CARPREP_STORAGE_DSN"); v != "" {
		p.Storage.DSN = v
	}
	if v := getenv("METRICS_BACKEND"); v != "" {
		p.Metrics.Backend = v
	}
	if v := getenv("PUSHGATEWAY_URL"); v != "" {
		p.Metrics.PushgatewayURL = v
	}
	if v := getenv("DD_AGENT_ADDR"); v != "" {
		p.Metrics.DatadogAddr = v
	}
}

// VocabularyPath returns the configured vocabulary artifact path or the
// default next to the final dataset.
func (p Pipeline) VocabularyPath() string {
	if p.Output.VocabularyPath != "" {
		return p.Output.VocabularyPath
	}
	return filepath.Join(filepath.Dir(p.Output.Path), "vocabulary.json")
}

// Options is a small helper to fetch typed values from free-form maps such as
// the imputation fallbacks. It performs only minimal coercion and returns the
// provided default when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Float returns the numeric value for key or def. JSON numbers decode as
// float64 and YAML integers as int; both are accepted.
func (o Options) Float(key string, def float64) (float64, bool) {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		}
	}
	return def, false
}

// Any returns the raw value for key.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON decodes a missing or null object to an empty, non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
