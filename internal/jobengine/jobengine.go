// Package jobengine implements C7, the Job Engine: a worker pool that fans
// per-file processing out across W goroutines, an orchestrator loop that
// batches results into the Review Store, and the pause/cancel/resume/halt
// state machine from spec.md §4.7.
//
// The worker/result-channel shape is the teacher's processFilesParallel
// generalized: an indexed job channel feeds a fixed pool of goroutines,
// and results flow back over a single channel for the orchestrator to
// batch — the same structure, now driving C5's pure Process function
// instead of a copy-and-hash step. The job channel is fed from the list of
// pending files that Run loads and sorts once at its start.
package jobengine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"mediaparser/internal/duplicate"
	"mediaparser/internal/errs"
	"mediaparser/internal/fileproc"
	"mediaparser/internal/store"
)

// Config bundles the per-job tunables the orchestrator consults. These
// come from internal/config.Config at job-start time; jobengine never
// reads the environment itself.
type Config struct {
	WorkerThreads   int
	BatchCommitSize int
	ErrorThreshold  float64
	MinSample       int
	ClusterWindow   time.Duration
	PollInterval    time.Duration // not read by the orchestrator: collect re-checks job.status after every result
}

// Orchestrator runs one job at a time to completion, pause, cancel, or halt.
// Its metadata-reuse cache lives on the Processor it wraps (see
// fileproc.NewProcessor), not here — the orchestrator itself holds no
// per-file state beyond the in-flight batch.
type Orchestrator struct {
	Store     *store.Store
	Processor *fileproc.Processor
	Config    Config
	Logger    *zap.Logger
}

// New builds an Orchestrator.
func New(s *store.Store, p *fileproc.Processor, cfg Config, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{Store: s, Processor: p, Config: cfg, Logger: logger}
}

type workItem struct {
	file store.File
}

type workResult struct {
	fileID   int64
	filename string
	result   fileproc.Result
}

// Run drives one job from its current state to a terminal state (or to
// PAUSED, which is not terminal — re-entry via another Run call resumes).
// It implements the full orchestrator loop from spec.md §4.7.
func (o *Orchestrator) Run(ctx context.Context, jobID int64) error {
	log := o.Logger.With(zap.Int64("job_id", jobID))

	job, err := o.Store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != store.JobPending && job.Status != store.JobPaused {
		return fmt.Errorf("%w: job %d is %s, not startable", errs.ErrInvalidTransition, jobID, job.Status)
	}

	// TransitionJob only stamps started_at when coming from PENDING, so
	// re-entry from PAUSED resumes without resetting it.
	if err := o.Store.TransitionJob(ctx, jobID, store.JobRunning, ""); err != nil {
		return err
	}

	pending, err := o.Store.FilesPendingProcessing(ctx, jobID)
	if err != nil {
		o.failJob(ctx, jobID, err)
		return err
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].OriginalFilename < pending[j].OriginalFilename })

	workers := o.Config.WorkerThreads
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan workItem, workers*2)
	results := make(chan workResult, workers*2)
	var wg sync.WaitGroup

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				res := o.processOne(workerCtx, job.StorageDir, item.file)
				select {
				case results <- workResult{fileID: item.file.ID, filename: item.file.OriginalFilename, result: res}:
				case <-workerCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range pending {
			select {
			case jobs <- workItem{file: f}:
			case <-workerCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcome, runErr := o.collect(ctx, jobID, len(pending), results, cancelWorkers)
	if runErr != nil {
		log.Error("orchestrator loop failed", zap.Error(runErr))
		o.failJob(ctx, jobID, runErr)
		return runErr
	}

	switch outcome {
	case outcomePaused:
		return nil // collect only reports this outcome once job.Status is already PAUSED
	case outcomeCancelled:
		return nil // collect only reports this outcome once job.Status is already CANCELLED
	case outcomeHalted:
		return nil // halt message/transition already applied in collect
	case outcomeCompleted:
		return o.finalize(ctx, jobID)
	}
	return nil
}

type loopOutcome int

const (
	outcomeCompleted loopOutcome = iota
	outcomePaused
	outcomeCancelled
	outcomeHalted
)

// collect implements the batching, error-threshold, and out-of-band
// status-polling logic from spec.md §4.7's orchestrator loop description.
func (o *Orchestrator) collect(ctx context.Context, jobID int64, total int, results <-chan workResult, cancelWorkers context.CancelFunc) (loopOutcome, error) {
	var batch []store.ResultRecord
	processed := 0
	errorCount := 0
	lastFilename := ""

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := o.Store.UpdateFilesBatch(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return o.Store.UpdateJobProgress(ctx, jobID, processed, lastFilename, errorCount)
	}

	for r := range results {
		processed++
		if r.result.ProcessingError != nil {
			errorCount++
		}
		batch = append(batch, toResultRecord(r.fileID, r.result))
		lastFilename = r.filename

		if len(batch) >= o.Config.BatchCommitSize {
			if err := flush(); err != nil {
				cancelWorkers()
				drain(results)
				return outcomeCompleted, err
			}
		}

		if processed >= o.Config.MinSample && o.Config.ErrorThreshold > 0 {
			rate := float64(errorCount) / float64(processed)
			if rate > o.Config.ErrorThreshold {
				cancelWorkers()
				drain(results)
				if err := flush(); err != nil {
					return outcomeCompleted, err
				}
				msg := fmt.Sprintf("error threshold exceeded: %d/%d failed (%.1f%%)", errorCount, processed, rate*100)
				if err := o.Store.TransitionJob(ctx, jobID, store.JobHalted, msg); err != nil {
					return outcomeCompleted, err
				}
				return outcomeHalted, nil
			}
		}

		job, err := o.Store.GetJob(ctx, jobID)
		if err != nil {
			cancelWorkers()
			drain(results)
			return outcomeCompleted, err
		}
		switch job.Status {
		case store.JobPaused:
			cancelWorkers()
			drain(results)
			if err := flush(); err != nil {
				return outcomeCompleted, err
			}
			return outcomePaused, nil
		case store.JobCancelled:
			cancelWorkers()
			drain(results)
			if err := flush(); err != nil {
				return outcomeCompleted, err
			}
			return outcomeCancelled, nil
		}

		select {
		case <-ctx.Done():
			cancelWorkers()
			drain(results)
			flush()
			return outcomeCancelled, ctx.Err()
		default:
		}
	}

	if err := flush(); err != nil {
		return outcomeCompleted, err
	}
	return outcomeCompleted, nil
}

func drain(results <-chan workResult) {
	for range results {
	}
}

func toResultRecord(fileID int64, r fileproc.Result) store.ResultRecord {
	rec := store.ResultRecord{
		FileID:          fileID,
		ContentHash:     r.ContentHash,
		PerceptualHash:  r.PerceptualHash,
		TimestampSource: r.TimestampSource,
		Confidence:      store.Confidence(r.Confidence),
		MIMEType:        r.MIMEType,
		Width:           r.Width,
		Height:          r.Height,
		ThumbnailPath:   r.ThumbnailPath,
	}
	if !r.ChosenTimestamp.IsZero() {
		t := r.ChosenTimestamp
		rec.ChosenTimestamp = &t
	}
	for _, c := range r.Candidates {
		rec.Candidates = append(rec.Candidates, store.Candidate{UTC: c.UTC, Source: c.Source})
	}
	if r.ProcessingError != nil {
		rec.ProcessingError = r.ProcessingError.Error()
	}
	return rec
}

func (o *Orchestrator) processOne(ctx context.Context, storageDir string, f store.File) fileproc.Result {
	return o.Processor.Process(ctx, fileproc.Input{
		Path:          f.OriginalPath,
		OriginalName:  f.OriginalFilename,
		JobStorageDir: storageDir,
	})
}

func (o *Orchestrator) failJob(ctx context.Context, jobID int64, cause error) {
	_ = o.Store.TransitionJob(ctx, jobID, store.JobFailed, cause.Error())
}

// finalize runs C6 over the job's files and marks the job COMPLETED.
func (o *Orchestrator) finalize(ctx context.Context, jobID int64) error {
	files, _, err := o.Store.ListJobFiles(ctx, jobID, store.ListFilesQuery{Mode: store.ModeAll, Page: 1, PageSize: 1 << 30})
	if err != nil {
		o.failJob(ctx, jobID, err)
		return err
	}

	dupInputs := make([]duplicate.File, 0, len(files))
	for _, f := range files {
		df := duplicate.File{
			ID:          f.ID,
			ContentHash: f.ContentHash,
			PerceptualHash: f.PerceptualHash,
			Discarded:   f.Discarded,
		}
		if f.ChosenTimestamp != nil {
			df.ChosenTimestamp = *f.ChosenTimestamp
			df.HasTimestamp = true
		}
		dupInputs = append(dupInputs, df)
	}

	groupings := duplicate.Run(dupInputs, o.Config.ClusterWindow)
	updates := make([]store.GroupingUpdate, 0, len(groupings))
	for _, g := range groupings {
		updates = append(updates, store.GroupingUpdate{
			FileID:                 g.FileID,
			ExactGroupID:           g.ExactGroupID,
			ExactGroupConfidence:   string(g.ExactGroupConfidence),
			SimilarGroupID:         g.SimilarGroupID,
			SimilarGroupConfidence: string(g.SimilarGroupConfidence),
			SimilarGroupKind:       string(g.SimilarGroupKind),
		})
	}
	if err := o.Store.ApplyGroupings(ctx, updates); err != nil {
		o.failJob(ctx, jobID, err)
		return err
	}

	return o.Store.TransitionJob(ctx, jobID, store.JobCompleted, "")
}
