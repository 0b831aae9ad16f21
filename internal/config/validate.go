package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline. Path is a dotted
// path into the config (e.g. "filter.year_min").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateOutput(p.Output)...)
	issues = append(issues, validateClean(p.Clean)...)
	issues = append(issues, validateImpute(p.Impute)...)
	issues = append(issues, validateEncode(p.Encode)...)
	issues = append(issues, validateFilter(p.Filter)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateMonitor(p.Monitor)...)

	if p.Runtime.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Dir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.dir",
			Message:  "source.dir must not be empty",
		})
	}
	if s.Pattern != "" {
		if _, err := filepath.Match(s.Pattern, "x.csv"); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.pattern",
				Message:  fmt.Sprintf("invalid glob %q: %v", s.Pattern, err),
			})
		}
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue
	if strings.TrimSpace(o.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.path",
			Message:  "output.path must not be empty",
		})
		return issues
	}
	if o.CombinedPath != "" && filepath.Clean(o.CombinedPath) == filepath.Clean(o.Path) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.combined_path",
			Message:  "combined_path must differ from output.path",
		})
	}
	if o.VocabularyPath != "" && filepath.Clean(o.VocabularyPath) == filepath.Clean(o.Path) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.vocabulary_path",
			Message:  "vocabulary_path must differ from output.path",
		})
	}
	return issues
}

func validateClean(c Clean) []Issue {
	if c.CurrencySymbol == "" {
		return []Issue{{
			Severity: SeverityWarning,
			Path:     "clean.currency_symbol",
			Message:  "no currency symbol configured; money cells must already be plain numbers",
		}}
	}
	return nil
}

func validateImpute(im Impute) []Issue {
	var issues []Issue
	seen := map[string]string{}
	for _, c := range im.Median {
		seen[c] = "median"
	}
	for _, c := range im.Mode {
		if prev, ok := seen[c]; ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "impute.mode",
				Message:  fmt.Sprintf("column %q is already imputed by %s", c, prev),
			})
		}
		seen[c] = "mode"
	}
	for k, v := range im.Fallback {
		strategy, ok := seen[k]
		if !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "impute.fallback." + k,
				Message:  "fallback for a column that is not imputed; it is ignored",
			})
			continue
		}
		switch v.(type) {
		case float64, int:
			if strategy == "mode" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "impute.fallback." + k,
					Message:  "categorical column needs a string fallback",
				})
			}
		case string:
			if strategy == "median" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "impute.fallback." + k,
					Message:  "numeric column needs a numeric fallback",
				})
			}
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "impute.fallback." + k,
				Message:  fmt.Sprintf("unsupported fallback type %T", v),
			})
		}
	}
	return issues
}

func validateEncode(e Encode) []Issue {
	if len(e.Columns) == 0 {
		return []Issue{{
			Severity: SeverityError,
			Path:     "encode.columns",
			Message:  "encode.columns must not be empty",
		}}
	}
	return nil
}

func validateFilter(f Filter) []Issue {
	var issues []Issue
	if f.YearMin > f.YearMax {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "filter.year_min",
			Message:  fmt.Sprintf("year_min %v exceeds year_max %v", f.YearMin, f.YearMax),
		})
	}
	if f.MileageMax <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "filter.mileage_max",
			Message:  "mileage_max must be positive",
		})
	}
	if f.MPGMax <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "filter.mpg_max",
			Message:  "mpg_max must be positive",
		})
	}
	if f.PriceZScoreMax < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "filter.price_zscore_max",
			Message:  "price_zscore_max must not be negative (0 disables)",
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Kind) == "" {
		return nil
	}
	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q", s.Kind),
		})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty (or set CARPREP_STORAGE_DSN)",
		})
	}
	if strings.TrimSpace(s.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.table",
			Message:  "storage.table must not be empty",
		})
	}
	if s.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; the loader default will be used", s.BatchSize),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if m.PushgatewayURL == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires a URL (or PUSHGATEWAY_URL)",
			}}
		}
	case "datadog":
	default:
		return []Issue{{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q", m.Backend),
		}}
	}
	return nil
}

func validateMonitor(m Monitor) []Issue {
	var issues []Issue
	if m.Threshold <= 0 || m.Threshold >= 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "monitor.threshold",
			Message:  fmt.Sprintf("threshold %v must be between 0 and 1", m.Threshold),
		})
	}
	if strings.TrimSpace(m.PredictionColumn) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "monitor.prediction_column",
			Message:  "prediction_column must not be empty",
		})
	}
	if m.LargeSample < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "monitor.large_sample",
			Message:  fmt.Sprintf("large_sample %d must not be negative", m.LargeSample),
		})
	}
	if m.DistanceThreshold <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "monitor.distance_threshold",
			Message:  fmt.Sprintf("distance_threshold %v must be positive", m.DistanceThreshold),
		})
	}
	return issues
}
