package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"katalog/internal/catalog"
	"katalog/internal/config"
	"katalog/internal/httpclient"
	"katalog/internal/metrics"
	"katalog/internal/sink"
	"katalog/internal/stream"
	"katalog/pkg/records"
)

// defaultBatchSize is how many records are buffered between sink writes when
// the job does not set runtime.batch_size.
const defaultBatchSize = 500

// Run executes one extraction job: every configured dataset is resolved,
// streamed, and loaded into the configured sink.
//
// Datasets run strictly sequentially unless runtime.parallelism raises the
// limit; each dataset still runs its own chain start to finish. The first
// failure aborts the run unless runtime.keep_going is set, in which case the
// remaining datasets still run and the first error is returned at the end.
func Run(ctx context.Context, job config.Job, logger zerolog.Logger) error {
	runID := uuid.New().String()
	logger = logger.With().Str("job", job.Name).Str("run_id", runID).Logger()

	factory := factoryForJob(job)

	parallel := job.Runtime.Parallelism
	if parallel < 1 {
		parallel = 1
	}

	logger.Info().
		Int("datasets", len(job.Datasets)).
		Int("parallelism", parallel).
		Str("sink", job.Sink.Kind).
		Msg("run started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	var mu sync.Mutex
	var firstErr error

	for _, ds := range job.Datasets {
		ds := ds
		g.Go(func() error {
			err := runDataset(gctx, factory, job, ds, runID, logger)
			if err == nil {
				return nil
			}
			err = fmt.Errorf("dataset %s: %w", ds.IRI, err)
			if !job.Runtime.KeepGoing {
				return err
			}
			logger.Error().Err(err).Msg("dataset failed, continuing")
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("run aborted")
		return err
	}
	if firstErr != nil {
		logger.Error().Err(firstErr).Msg("run finished with failures")
		return firstErr
	}
	logger.Info().Msg("run finished")
	return nil
}

// factoryForJob wires the HTTP client and catalog client a job configures.
func factoryForJob(job config.Job) *Factory {
	hc := httpclient.New(httpclient.Config{
		Timeout:   time.Duration(job.Catalog.TimeoutSeconds) * time.Second,
		UserAgent: job.Catalog.UserAgent,
	})
	return NewFactory(FactoryConfig{
		Catalog: catalog.NewClient(catalog.Config{
			Endpoint: job.Catalog.Endpoint,
			Locale:   job.Catalog.Locale,
			HTTP:     hc,
		}),
		HTTP:        hc,
		SkipBadRows: job.Runtime.SkipBadRows,
	})
}

// runDataset executes the full chain for one configured dataset: resolve,
// schema fetch, payload stream, batched sink writes with checkpoints.
//
// Each dataset gets its own sink instance so that parallel chains never
// share connection state.
func runDataset(ctx context.Context, f *Factory, job config.Job, ds config.Dataset, runID string, logger zerolog.Logger) error {
	start := time.Now()
	d, err := f.Resolve(ctx, ds.IRI)
	metrics.RecordStep(job.Name, "resolve", err, time.Since(start))
	if err != nil {
		return err
	}

	name := StreamName(d.Title)
	if ds.Name != "" {
		name = StreamName(ds.Name)
	}
	slog := logger.With().Str("stream", name).Str("dataset", d.IRI).Logger()
	slog.Info().Str("title", d.Title).Msg("dataset resolved")

	start = time.Now()
	sch, err := f.FetchSchema(ctx, d)
	metrics.RecordStep(job.Name, "schema", err, time.Since(start))
	if err != nil {
		return err
	}
	if sch.PrimaryKey != "" && !sch.PrimaryKeyValid() {
		slog.Warn().Str("primary_key", sch.PrimaryKey).Msg("declared primary key does not name a column")
	}

	start = time.Now()
	rows, err := f.OpenRows(ctx, d, sch)
	metrics.RecordStep(job.Name, "stream", err, time.Since(start))
	if err != nil {
		return err
	}
	defer rows.Close()

	slog.Debug().
		Int64("payload_bytes", rows.Size()).
		Str("delimiter", string(rows.Dialect().Comma)).
		Msg("payload buffered")

	snk, err := sink.New(ctx, job.Sink)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer snk.Close()

	if err := snk.Open(ctx, sink.StreamInfo{
		Name:       name,
		IRI:        d.IRI,
		Title:      d.Title,
		PrimaryKey: sch.PrimaryKey,
		Columns:    sch.Columns,
	}); err != nil {
		return fmt.Errorf("open sink: %w", err)
	}

	start = time.Now()
	res, err := drain(ctx, rows, snk, name, runID, job, slog)
	metrics.RecordStep(job.Name, "load", err, time.Since(start))
	metrics.RecordRows(job.Name, name, "extracted", int64(rows.Count()))
	metrics.RecordRows(job.Name, name, "skipped", int64(rows.Skipped()))
	if err != nil {
		return err
	}

	slog.Info().
		Int("records", rows.Count()).
		Int("skipped", rows.Skipped()).
		Int64("batches", res.batches).
		Str("fingerprint", fingerprintHex(rows)).
		Msg("dataset loaded")
	return nil
}

// drainResult carries per-dataset load totals.
type drainResult struct {
	written int64
	batches int64
}

// drain moves records from the row iterator into the sink in batches,
// emitting state checkpoints as configured plus one at stream end.
func drain(ctx context.Context, rows *stream.Rows, snk sink.Sink, name, runID string, job config.Job, logger zerolog.Logger) (drainResult, error) {
	batchSize := job.Runtime.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var res drainResult

	checkpoint := func() sink.Checkpoint {
		return sink.Checkpoint{
			Stream:      name,
			RunID:       runID,
			Records:     int64(rows.Count()),
			Skipped:     int64(rows.Skipped()),
			Batches:     res.batches,
			Fingerprint: fingerprintHex(rows),
			At:          time.Now().UTC(),
		}
	}

	batch := make([]records.Record, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := snk.Write(ctx, batch)
		if err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		res.written += n
		res.batches++
		batch = batch[:0]
		metrics.RecordRows(job.Name, name, "written", n)
		metrics.RecordBatches(job.Name, name, 1)
		logger.Debug().Int64("rows", n).Int64("batches", res.batches).Msg("batch flushed")

		if every := job.Runtime.StateEvery; every > 0 && res.batches%int64(every) == 0 {
			if err := snk.State(ctx, checkpoint()); err != nil {
				return fmt.Errorf("checkpoint: %w", err)
			}
		}
		return nil
	}

	for rows.Next() {
		batch = append(batch, rows.Record())
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return res, err
	}
	if err := flush(); err != nil {
		return res, err
	}
	if err := snk.State(ctx, checkpoint()); err != nil {
		return res, fmt.Errorf("checkpoint: %w", err)
	}
	return res, nil
}

// fingerprintHex renders the payload hash the way checkpoints carry it.
func fingerprintHex(rows *stream.Rows) string {
	return fmt.Sprintf("%016x", rows.Fingerprint())
}
