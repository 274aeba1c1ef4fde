// Package wanx is a client for Alibaba Cloud DashScope's Wanx video
// generation API. Generation is asynchronous on the service side: a submit
// call returns a task id, and the task is then polled until it reaches a
// terminal status. Result URLs are temporary (the service expires them after
// 24 hours), so callers should download promptly.
package wanx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultBaseURL         = "https://dashscope-intl.aliyuncs.com/api/v1"
	DefaultPollInterval    = 15 * time.Second
	DefaultMaxPollAttempts = 40

	synthesisEndpoint = "/services/aigc/video-generation/video-synthesis"

	ModelTextToVideo       = "wan2.6-t2v"
	ModelImageToVideo      = "wan2.6-i2v"
	ModelImageToVideoFlash = "wan2.6-i2v-flash"
)

// TaskStatus is the service-side status of a generation task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskRunning   TaskStatus = "RUNNING"
	TaskSucceeded TaskStatus = "SUCCEEDED"
	TaskFailed    TaskStatus = "FAILED"
	TaskUnknown   TaskStatus = "UNKNOWN"
)

type TextToVideoInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	AudioURL       string `json:"audio_url,omitempty"`
}

type TextToVideoParameters struct {
	Size         string `json:"size,omitempty"`
	Duration     int    `json:"duration,omitempty"`
	PromptExtend *bool  `json:"prompt_extend,omitempty"`
	ShotType     string `json:"shot_type,omitempty"`
	Watermark    *bool  `json:"watermark,omitempty"`
	Seed         int    `json:"seed,omitempty"`
}

type ImageToVideoInput struct {
	Prompt         string `json:"prompt"`
	ImgURL         string `json:"img_url"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	AudioURL       string `json:"audio_url,omitempty"`
}

type ImageToVideoParameters struct {
	Resolution   string `json:"resolution,omitempty"`
	Duration     int    `json:"duration,omitempty"`
	PromptExtend *bool  `json:"prompt_extend,omitempty"`
	ShotType     string `json:"shot_type,omitempty"`
	Audio        *bool  `json:"audio,omitempty"`
	Watermark    *bool  `json:"watermark,omitempty"`
	Seed         int    `json:"seed,omitempty"`
}

type taskOutput struct {
	TaskStatus TaskStatus `json:"task_status"`
	TaskID     string     `json:"task_id"`
	VideoURL   string     `json:"video_url,omitempty"`
	OrigPrompt string     `json:"orig_prompt,omitempty"`
	SubmitTime string     `json:"submit_time,omitempty"`
	EndTime    string     `json:"end_time,omitempty"`
	Code       string     `json:"code,omitempty"`
	Message    string     `json:"message,omitempty"`
}

type taskUsage struct {
	Duration            float64 `json:"duration,omitempty"`
	Size                string  `json:"size,omitempty"`
	OutputVideoDuration float64 `json:"output_video_duration,omitempty"`
}

type TaskSubmitResponse struct {
	Output    taskOutput `json:"output"`
	RequestID string     `json:"request_id"`
}

type TaskQueryResponse struct {
	Output    taskOutput `json:"output"`
	Usage     *taskUsage `json:"usage,omitempty"`
	RequestID string     `json:"request_id"`
}

// Config tunes a Client. Zero values fall back to the documented defaults:
// 15s poll interval with a 40-attempt ceiling bounds one blocked caller to
// about ten minutes of waiting.
type Config struct {
	APIKey          string
	BaseURL         string
	PollInterval    time.Duration
	MaxPollAttempts int
	HTTPClient      *http.Client
}

type Client struct {
	apiKey          string
	baseURL         string
	pollInterval    time.Duration
	maxPollAttempts int
	httpClient      *http.Client
}

func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:          cfg.APIKey,
		baseURL:         cfg.BaseURL,
		pollInterval:    cfg.PollInterval,
		maxPollAttempts: cfg.MaxPollAttempts,
		httpClient:      cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.maxPollAttempts <= 0 {
		c.maxPollAttempts = DefaultMaxPollAttempts
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c
}

func (c *Client) do(ctx context.Context, method, endpoint string, async bool, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request for %s: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if async {
		req.Header.Set("X-DashScope-Async", "enable")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &SubmissionError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

// SubmitTextToVideo submits an asynchronous text-to-video task and returns
// the task id assigned by the service.
func (c *Client) SubmitTextToVideo(ctx context.Context, input TextToVideoInput, params TextToVideoParameters) (TaskSubmitResponse, error) {
	payload := struct {
		Model      string                `json:"model"`
		Input      TextToVideoInput      `json:"input"`
		Parameters TextToVideoParameters `json:"parameters"`
	}{
		Model:      ModelTextToVideo,
		Input:      input,
		Parameters: params,
	}

	var resp TaskSubmitResponse
	if err := c.do(ctx, http.MethodPost, synthesisEndpoint, true, payload, &resp); err != nil {
		return TaskSubmitResponse{}, err
	}
	return resp, nil
}

// SubmitImageToVideo submits an asynchronous image-to-video task. model
// selects between ModelImageToVideo and ModelImageToVideoFlash; empty means
// the regular model.
func (c *Client) SubmitImageToVideo(ctx context.Context, input ImageToVideoInput, params ImageToVideoParameters, model string) (TaskSubmitResponse, error) {
	if model == "" {
		model = ModelImageToVideo
	}
	payload := struct {
		Model      string                 `json:"model"`
		Input      ImageToVideoInput      `json:"input"`
		Parameters ImageToVideoParameters `json:"parameters"`
	}{
		Model:      model,
		Input:      input,
		Parameters: params,
	}

	var resp TaskSubmitResponse
	if err := c.do(ctx, http.MethodPost, synthesisEndpoint, true, payload, &resp); err != nil {
		return TaskSubmitResponse{}, err
	}
	return resp, nil
}

// QueryTask fetches the current status of a task.
func (c *Client) QueryTask(ctx context.Context, taskID string) (TaskQueryResponse, error) {
	var resp TaskQueryResponse
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID, false, nil, &resp); err != nil {
		return TaskQueryResponse{}, err
	}
	return resp, nil
}

// WaitForTask polls a task until it reaches a terminal status or the attempt
// ceiling is exhausted. onProgress, when non-nil, is invoked with the status
// and attempt counter before terminal conditions are evaluated, so the first
// invocation reports the pre-poll status with attempt 0.
func (c *Client) WaitForTask(ctx context.Context, taskID string, onProgress func(status TaskStatus, attempt int)) (TaskQueryResponse, error) {
	attempts := 0
	for attempts < c.maxPollAttempts {
		resp, err := c.QueryTask(ctx, taskID)
		if err != nil {
			return TaskQueryResponse{}, err
		}

		if onProgress != nil {
			onProgress(resp.Output.TaskStatus, attempts)
		}

		switch resp.Output.TaskStatus {
		case TaskSucceeded:
			return resp, nil
		case TaskFailed:
			return TaskQueryResponse{}, &RemoteTaskFailedError{
				TaskID:  taskID,
				Code:    resp.Output.Code,
				Message: resp.Output.Message,
			}
		case TaskUnknown:
			return TaskQueryResponse{}, &TaskNotFoundError{TaskID: taskID}
		}

		attempts++
		select {
		case <-ctx.Done():
			return TaskQueryResponse{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	return TaskQueryResponse{}, &PollTimeoutError{TaskID: taskID, Attempts: c.maxPollAttempts}
}

// GenerateOptions tunes a composed GenerateFromPrompt call. Zero values get
// the service defaults used throughout the project.
type GenerateOptions struct {
	NegativePrompt string
	AudioURL       string
	Size           string
	Duration       int
	PromptExtend   *bool
	ShotType       string
	OnProgress     func(status TaskStatus, attempt int)
}

type GenerateResult struct {
	VideoURL string
	TaskID   string
	Duration float64
}

// GenerateFromPrompt submits a text-to-video task and waits for it to
// finish. This is the entry point orchestration code should use; Submit and
// WaitForTask exist separately for status tooling.
func (c *Client) GenerateFromPrompt(ctx context.Context, prompt string, opts GenerateOptions) (GenerateResult, error) {
	size := opts.Size
	if size == "" {
		size = "1280*720"
	}
	duration := opts.Duration
	if duration <= 0 {
		duration = 5
	}
	promptExtend := opts.PromptExtend
	if promptExtend == nil {
		v := true
		promptExtend = &v
	}
	shotType := opts.ShotType
	if shotType == "" {
		shotType = "single"
	}

	submitResp, err := c.SubmitTextToVideo(ctx,
		TextToVideoInput{
			Prompt:         prompt,
			NegativePrompt: opts.NegativePrompt,
			AudioURL:       opts.AudioURL,
		},
		TextToVideoParameters{
			Size:         size,
			Duration:     duration,
			PromptExtend: promptExtend,
			ShotType:     shotType,
		},
	)
	if err != nil {
		return GenerateResult{}, err
	}
	taskID := submitResp.Output.TaskID

	result, err := c.WaitForTask(ctx, taskID, opts.OnProgress)
	if err != nil {
		return GenerateResult{}, err
	}
	if result.Output.VideoURL == "" {
		return GenerateResult{}, &MissingResultError{TaskID: taskID}
	}

	out := GenerateResult{VideoURL: result.Output.VideoURL, TaskID: taskID}
	if result.Usage != nil {
		out.Duration = result.Usage.OutputVideoDuration
	}
	return out, nil
}
