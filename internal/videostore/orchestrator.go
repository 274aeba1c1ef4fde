// Package videostore drives one video generation job end to end: record the
// attempt, submit to the remote API, poll to completion, download the
// temporary result URL to durable local storage, and reconcile the outcome
// into the metadata store.
package videostore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"timelens/internal/metastore"
	"timelens/internal/model"
	"timelens/internal/prompt"
	"timelens/internal/wanx"
)

// Stage names are observational only; they never appear in persisted state.
const (
	StagePrompting   = "prompting"
	StageSubmitting  = "submitting"
	StageGenerating  = "generating"
	StageDownloading = "downloading"
	StageComplete    = "complete"
)

// ProgressEvent is one live progress notification. Status and Attempt are
// only meaningful during the generating stage.
type ProgressEvent struct {
	Stage   string
	Status  wanx.TaskStatus
	Attempt int
	Message string
}

// Result is the per-job outcome. Per-job failures are carried here, not
// returned as errors: by the time GenerateAndStore returns, the metadata
// record already reflects the outcome.
type Result struct {
	SpotID    string `json:"spotId"`
	EraID     string `json:"eraId"`
	Success   bool   `json:"success"`
	LocalPath string `json:"localPath,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Options tunes one orchestrated job. OnProgress, when non-nil, observes
// stage transitions; it must not block for long since it runs on the job's
// goroutine.
type Options struct {
	OnProgress func(ProgressEvent)
}

// Orchestrator composes the metadata store, the generation client, and the
// download stage.
type Orchestrator struct {
	Store      *metastore.Store
	Client     *wanx.Client
	VideosDir  string
	HTTPClient *http.Client
}

func New(store *metastore.Store, client *wanx.Client, videosDir string) *Orchestrator {
	if videosDir == "" {
		videosDir = "static/videos"
	}
	return &Orchestrator{Store: store, Client: client, VideosDir: videosDir}
}

func (o *Orchestrator) emit(opts Options, ev ProgressEvent) {
	if opts.OnProgress != nil {
		opts.OnProgress(ev)
	}
}

// GenerateAndStore runs the full workflow for one (spot, era) pair.
//
// Durable transitions: the record is upserted as generating before the
// submit, and moved to ready or failed before control returns. Every error
// raised by any stage lands in the record as status=failed; the only way a
// record stays generating is abnormal process termination in between.
// Re-invoking for an identity that is already ready overwrites it with a
// fresh generating entry and, on success, a fresh artifact at the same path.
func (o *Orchestrator) GenerateAndStore(ctx context.Context, spot model.Spot, era model.Era, opts Options) Result {
	result := Result{SpotID: spot.ID, EraID: era.ID}
	createdAt := time.Now().UTC().Format(time.RFC3339)

	o.emit(opts, ProgressEvent{Stage: StagePrompting, Message: "Building generation prompt"})
	jobPrompt := prompt.Build(era)
	if err := prompt.Validate(jobPrompt); err != nil {
		return o.fail(spot.ID, era.ID, err, opts, result)
	}

	if err := o.Store.Upsert(model.VideoMetadataEntry{
		SpotID:    spot.ID,
		EraID:     era.ID,
		Prompt:    jobPrompt,
		LocalPath: "",
		Status:    model.StatusGenerating,
		CreatedAt: createdAt,
	}); err != nil {
		return o.fail(spot.ID, era.ID, err, opts, result)
	}

	o.emit(opts, ProgressEvent{Stage: StageSubmitting, Message: "Submitting video generation task"})

	genResult, err := o.Client.GenerateFromPrompt(ctx, jobPrompt, wanx.GenerateOptions{
		OnProgress: func(status wanx.TaskStatus, attempt int) {
			o.emit(opts, ProgressEvent{
				Stage:   StageGenerating,
				Status:  status,
				Attempt: attempt,
				Message: fmt.Sprintf("Generating video: %s (attempt %d)", status, attempt),
			})
		},
	})
	if err != nil {
		return o.fail(spot.ID, era.ID, err, opts, result)
	}
	result.TaskID = genResult.TaskID

	o.emit(opts, ProgressEvent{Stage: StageDownloading, Message: "Downloading video from temporary URL"})

	localPath := VideoPath(o.VideosDir, spot.ID, era.ID)
	if err := DownloadTo(ctx, o.HTTPClient, genResult.VideoURL, localPath); err != nil {
		return o.fail(spot.ID, era.ID, err, opts, result)
	}

	completedAt := time.Now().UTC().Format(time.RFC3339)
	if err := o.Store.Upsert(model.VideoMetadataEntry{
		SpotID:      spot.ID,
		EraID:       era.ID,
		Prompt:      jobPrompt,
		LocalPath:   localPath,
		Status:      model.StatusReady,
		CreatedAt:   createdAt,
		CompletedAt: completedAt,
		TaskID:      genResult.TaskID,
	}); err != nil {
		return o.fail(spot.ID, era.ID, err, opts, result)
	}

	result.Success = true
	result.LocalPath = localPath
	o.emit(opts, ProgressEvent{Stage: StageComplete, Message: "Video saved to " + localPath})
	return result
}

// fail funnels every stage error into one reconciled failed record. Store
// write errors while recording the failure are reported in the result but
// cannot be persisted anywhere else.
func (o *Orchestrator) fail(spotID, eraID string, err error, opts Options, result Result) Result {
	msg := err.Error()
	if storeErr := o.Store.MarkFailed(spotID, eraID, msg); storeErr != nil {
		msg = fmt.Sprintf("%s (additionally failed to record: %s)", msg, storeErr)
	}
	result.Success = false
	result.Error = msg
	o.emit(opts, ProgressEvent{Stage: StageComplete, Message: "Error: " + msg})
	return result
}

// GenerateAllEras runs every era of a spot sequentially and returns one
// result per era, in era order.
func (o *Orchestrator) GenerateAllEras(ctx context.Context, spot model.Spot, opts Options) []Result {
	results := make([]Result, 0, len(spot.Eras))
	for _, era := range spot.Eras {
		results = append(results, o.GenerateAndStore(ctx, spot, era, opts))
	}
	return results
}
