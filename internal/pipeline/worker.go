package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docnorm/internal/backend"
	"github.com/dgallion1/docnorm/internal/docmodel"
	"github.com/dgallion1/docnorm/internal/render"
	"github.com/dgallion1/docnorm/internal/sink"
	"github.com/dgallion1/docnorm/internal/validate"
)

// Worker processes a single conversion job. The sink is optional;
// when nil, delivery is skipped and results stay in the job store.
type Worker struct {
	sink       *sink.Client
	log        *slog.Logger
	stats      *Stats
	renderOpts render.Options
}

func NewWorker(sc *sink.Client, log *slog.Logger, stats *Stats, renderOpts render.Options) *Worker {
	return &Worker{
		sink:       sc,
		log:        log,
		stats:      stats,
		renderOpts: renderOpts,
	}
}

// Process runs the full conversion pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)
	started := time.Now()

	// Phase 1: Convert
	job.SetStatus(StatusConverting, "converting")
	data := job.FileData()
	job.ContentHash = ContentHashHex(data)

	res, err := backend.Convert(data, job.Filename)
	if err != nil {
		log.Error("conversion failed", "error", err)
		if class, ok := backend.Classify(err); ok {
			w.stats.RecordFailure(string(class))
			job.SetFailureClass(string(class))
		} else {
			w.stats.RecordFailure("unclassified")
		}
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "converting")
		return
	}
	job.SetFormat(string(res.Format))

	if res.Direct {
		// Bypass formats carry rendered output and no tree.
		job.SetResult(nil, res.Markdown, docmodel.Metadata{}, nil)
		w.stats.RecordConversion(string(res.Format), 0, time.Since(started).Milliseconds())
		log.Info("conversion complete", "format", res.Format, "direct", true)
		if w.sink != nil {
			w.deliver(ctx, job, log)
			return
		}
		job.SetStatus(StatusCompleted, "done")
		return
	}

	// Phase 2: Validate
	job.SetStatus(StatusValidating, "validating")
	issues := validate.Document(res.Doc)
	if len(issues) > 0 {
		log.Warn("validation found issues", "count", len(issues))
	}

	// Phase 3: Render
	job.SetStatus(StatusRendering, "rendering")
	markdown := render.Markdown(res.Doc, w.renderOpts)
	tree, err := res.Doc.MarshalIndent()
	if err != nil {
		log.Error("tree serialization failed", "error", err)
		w.stats.RecordFailure("serialization")
		job.AddError(fmt.Sprintf("serialize: %s", err))
		job.SetStatus(StatusFailed, "rendering")
		return
	}

	job.SetResult(tree, markdown, res.Doc.Metadata, issues)
	w.stats.RecordConversion(string(res.Format), res.Doc.NodeCount(), time.Since(started).Milliseconds())
	log.Info("conversion complete", "format", res.Format, "nodes", res.Doc.NodeCount(), "issues", len(issues))

	// Phase 4: Deliver (optional)
	if w.sink != nil {
		w.deliver(ctx, job, log)
		return
	}
	job.SetStatus(StatusCompleted, "done")
}

// deliver pushes the result to the downstream store with bounded retries.
func (w *Worker) deliver(ctx context.Context, job *Job, log *slog.Logger) {
	job.SetStatus(StatusDelivering, "delivering")

	snap := job.Snapshot()
	result := job.output()
	payload := sink.DocumentPayload{
		ID:       snap.DocID,
		Filename: snap.Filename,
		Format:   snap.Format,
		Metadata: result.Metadata,
		Tree:     result.Tree,
		Markdown: result.Markdown,
	}
	for _, iss := range result.Issues {
		payload.Issues = append(payload.Issues, sink.DeliveredIssue{
			Check:  string(iss.Check),
			Ref:    string(iss.Ref),
			Detail: iss.Detail,
		})
	}

	var lastErr error
	for attempt := range MaxRetries {
		lastErr = w.sink.PutDocument(ctx, payload)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable delivery error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			lastErr = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		log.Error("delivery failed", "error", lastErr)
		job.AddError(fmt.Sprintf("deliver: %s", lastErr))
		job.SetStatus(StatusFailed, "delivering")
		return
	}
	job.SetStatus(StatusCompleted, "done")
}
