// Package pipeline runs one car-listing preparation: every source file is
// parsed, normalized and cleaned concurrently, then the merged table passes
// through rectification, imputation, encoding, range filtering,
// de-duplication and pruning. Artifacts are published only when every stage
// succeeded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"carprep/internal/config"
	"carprep/internal/dataerr"
	"carprep/internal/datasource"
	"carprep/internal/datasource/file"
	"carprep/internal/ddl"
	"carprep/internal/logging"
	"carprep/internal/metrics"
	"carprep/internal/parser"
	pcsv "carprep/internal/parser/csv"
	"carprep/internal/schema"
	"carprep/internal/sink"
	"carprep/internal/storage"
	"carprep/internal/table"
	"carprep/internal/transformer"
	"carprep/internal/transformer/builtin"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Result summarizes a successful run.
type Result struct {
	RunID          string
	Sources        []string
	MergedRows     int
	Rows           int
	Columns        []string
	Vocabulary     schema.Vocabulary
	OutputPath     string
	VocabularyPath string
	CombinedPath   string
	Loaded         int64
	Duration       time.Duration
}

// Test seams.
var (
	newRepository = storage.New
	now           = time.Now
)

// Run executes the pipeline described by cfg. On error nothing is published.
func Run(ctx context.Context, cfg config.Pipeline, log logrus.FieldLogger) (Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	start := now()

	issues := config.ValidatePipeline(cfg)
	var errs []error
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			errs = append(errs, iss)
			continue
		}
		log.WithField("path", iss.Path).Warn(iss.Message)
	}
	if len(errs) > 0 {
		return Result{}, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	entry, runID := logging.ForRun(log, cfg.Job)
	res := Result{RunID: runID}
	err := run(ctx, cfg, entry, &res)
	metrics.RecordStep(cfg.Job, "run", err, now().Sub(start))
	if err != nil {
		entry.WithError(err).Error("run failed")
		return Result{}, err
	}
	res.Duration = now().Sub(start)
	metrics.RecordSuccess(cfg.Job, now())
	entry.WithFields(logrus.Fields{
		"rows":     res.Rows,
		"columns":  len(res.Columns),
		"output":   res.OutputPath,
		"duration": res.Duration.Truncate(time.Millisecond),
	}).Info("run complete")
	return res, nil
}

func run(ctx context.Context, cfg config.Pipeline, log *logrus.Entry, res *Result) error {
	sources, err := file.List(cfg.Source.Dir, cfg.Source.Pattern)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no input files matching %q in %s", cfg.Source.Pattern, cfg.Source.Dir)
	}
	for _, s := range sources {
		res.Sources = append(res.Sources, s.Identity())
	}
	log.WithField("sources", res.Sources).Info("sources listed")

	prepared, err := prepareSources(ctx, cfg, sources, log)
	if err != nil {
		return err
	}
	merged := builtin.Merge(prepared)
	res.MergedRows = merged.Len()

	env := builtin.Env{Job: cfg.Job, Log: log}
	imputed, err := transformer.Chain{
		builtin.Rectify{
			Env:         env,
			Aliases:     cfg.Rectify.Aliases,
			Drop:        cfg.Rectify.Drop,
			MakeMapping: cfg.Rectify.MakeMapping,
			Declared:    schema.DefaultDeclared(),
		},
		builtin.Impute{
			Env:      env,
			Median:   cfg.Impute.Median,
			Mode:     cfg.Impute.Mode,
			Fallback: cfg.Impute.Fallback,
		},
	}.Run(ctx, cfg.Job, log, merged)
	if err != nil {
		return err
	}

	vocab, err := vocabulary(cfg, imputed, log)
	if err != nil {
		return err
	}
	vocab.Pruned = cfg.Prune.Columns

	final, err := transformer.Chain{
		builtin.Encode{Env: env, Vocab: vocab},
		builtin.RangeFilter{
			Env:            env,
			YearMin:        cfg.Filter.YearMin,
			YearMax:        cfg.Filter.YearMax,
			MileageMax:     cfg.Filter.MileageMax,
			MPGMax:         cfg.Filter.MPGMax,
			PriceZScoreMax: cfg.Filter.PriceZScoreMax,
		},
		builtin.DeDup{Env: env},
		builtin.Prune{Env: env, Columns: cfg.Prune.Columns, Vocab: vocab},
		// Pruning can make rows that differed only in a dropped column equal.
		builtin.DeDup{Env: env},
	}.Run(ctx, cfg.Job, log, imputed)
	if err != nil {
		return err
	}
	if err := builtin.ValidateFinal(final, vocab); err != nil {
		return err
	}

	res.Rows = final.Len()
	res.Columns = vocab.FinalColumns()
	res.Vocabulary = vocab

	if err := publish(ctx, cfg, merged, final, vocab, res); err != nil {
		return err
	}
	metrics.RecordRow(cfg.Job, "written", int64(final.Len()))

	if cfg.Storage.Kind != "" {
		n, err := load(ctx, cfg, final, res.Columns, log)
		if err != nil {
			return err
		}
		res.Loaded = n
	}
	return nil
}

// prepareSources parses, normalizes and cleans every source with at most
// runtime.workers running at once. The first failure cancels the rest.
func prepareSources(ctx context.Context, cfg config.Pipeline, sources []*file.Local, log *logrus.Entry) (map[string]*table.Table, error) {
	workers := cfg.Runtime.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		mu  sync.Mutex
		out = make(map[string]*table.Table, len(sources))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			t, err := prepareSource(gctx, cfg, src, log)
			if err != nil {
				return err
			}
			mu.Lock()
			out[src.Identity()] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func prepareSource(ctx context.Context, cfg config.Pipeline, src datasource.Source, log *logrus.Entry) (*table.Table, error) {
	id := src.Identity()
	slog := log.WithField("source", id)

	raw, err := parseSource(ctx, src, slog, cfg.Job)
	if err != nil {
		var malformed *dataerr.MalformedInputError
		if errors.As(err, &malformed) {
			slog.WithError(malformed.Err).Warn("malformed source")
		}
		return nil, err
	}

	env := builtin.Env{Job: cfg.Job, Log: slog}
	return transformer.Chain{
		builtin.NormalizeColumns{Env: env, Source: id, CurrencySymbol: cfg.Clean.CurrencySymbol},
		builtin.Clean{
			Env:             env,
			Source:          id,
			CurrencySymbol:  cfg.Clean.CurrencySymbol,
			CurrencyColumns: cfg.Clean.CurrencyColumns,
			Numeric:         cfg.Clean.Numeric,
		},
	}.Run(ctx, cfg.Job, slog, raw)
}

func parseSource(ctx context.Context, src datasource.Source, log logrus.FieldLogger, job string) (*table.Table, error) {
	start := now()
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, &dataerr.MalformedInputError{Source: src.Identity(), Err: err}
	}
	defer rc.Close()

	var p parser.Parser = pcsv.NewParser(pcsv.Options{Log: log})
	t, skipped, err := p.Parse(rc)
	metrics.RecordStep(job, "parse", err, now().Sub(start))
	if err != nil {
		return nil, &dataerr.MalformedInputError{Source: src.Identity(), Err: err}
	}
	metrics.RecordRow(job, "parsed", int64(t.Len()))
	metrics.RecordRow(job, "parse_skipped", int64(skipped))
	log.WithFields(logrus.Fields{"rows": t.Len(), "skipped": skipped}).Debug("source parsed")
	return t, nil
}

// vocabulary fits the encoding vocabulary on in, or loads the frozen one and
// checks that it covers every encoded field.
func vocabulary(cfg config.Pipeline, in *table.Table, log logrus.FieldLogger) (schema.Vocabulary, error) {
	if cfg.Encode.FrozenVocabulary == "" {
		return builtin.FitVocabulary(in, cfg.Encode.Columns), nil
	}
	v, err := schema.LoadVocabulary(cfg.Encode.FrozenVocabulary)
	if err != nil {
		return schema.Vocabulary{}, err
	}
	for _, f := range cfg.Encode.Columns {
		if _, ok := v.Field(f); !ok {
			return schema.Vocabulary{}, &dataerr.SchemaDriftError{
				Field:  f,
				Reason: "not part of frozen vocabulary " + cfg.Encode.FrozenVocabulary,
			}
		}
	}
	log.WithField("path", cfg.Encode.FrozenVocabulary).Info("using frozen vocabulary")
	return v, nil
}

// publish stages every artifact before renaming any of them, so a failed
// write or rename leaves the previous artifacts in place.
func publish(ctx context.Context, cfg config.Pipeline, merged, final *table.Table, vocab schema.Vocabulary, res *Result) error {
	var b sink.Batch
	if cfg.Output.CombinedPath != "" {
		if err := b.CSV(ctx, cfg.Output.CombinedPath, merged, merged.Columns()); err != nil {
			return fmt.Errorf("publish combined: %w", err)
		}
	}
	vpath := cfg.VocabularyPath()
	if err := b.JSON(ctx, vpath, vocab); err != nil {
		return fmt.Errorf("publish vocabulary: %w", err)
	}
	if err := b.CSV(ctx, cfg.Output.Path, final, res.Columns); err != nil {
		return fmt.Errorf("publish dataset: %w", err)
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	res.CombinedPath = cfg.Output.CombinedPath
	res.VocabularyPath = vpath
	res.OutputPath = cfg.Output.Path
	return nil
}

func load(ctx context.Context, cfg config.Pipeline, final *table.Table, columns []string, log logrus.FieldLogger) (int64, error) {
	repo, err := newRepository(ctx, storage.Config{
		Kind:  cfg.Storage.Kind,
		DSN:   cfg.Storage.DSN,
		Table: cfg.Storage.Table,
	})
	if err != nil {
		return 0, fmt.Errorf("init repo: %w", err)
	}
	defer repo.Close()

	if cfg.Storage.AutoCreateTable {
		if err := storage.EnsureTable(ctx, cfg.Storage.Kind, repo, ddl.ListingTable(cfg.Storage.Table, columns)); err != nil {
			return 0, err
		}
	}
	return storage.LoadTable(ctx, repo, final, columns, storage.LoadOptions{
		Job:       cfg.Job,
		BatchSize: cfg.Storage.BatchSize,
		Log:       log.WithField("table", cfg.Storage.Table),
	})
}
