package wanx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:          "test-key",
		BaseURL:         srv.URL,
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 5,
	})
}

func queryResponse(status TaskStatus, taskID, videoURL string) TaskQueryResponse {
	return TaskQueryResponse{
		Output:    taskOutput{TaskStatus: status, TaskID: taskID, VideoURL: videoURL},
		RequestID: "req-1",
	}
}

func TestSubmitTextToVideoSendsAsyncRequest(t *testing.T) {
	var gotAuth, gotAsync string
	var gotBody map[string]any

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != synthesisEndpoint {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotAsync = r.Header.Get("X-DashScope-Async")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(TaskSubmitResponse{
			Output:    taskOutput{TaskStatus: TaskPending, TaskID: "T1"},
			RequestID: "req-1",
		})
	}))

	resp, err := client.SubmitTextToVideo(context.Background(),
		TextToVideoInput{Prompt: "a foggy harbor at dawn"},
		TextToVideoParameters{Size: "1280*720", Duration: 5},
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Output.TaskID != "T1" {
		t.Fatalf("task id = %q", resp.Output.TaskID)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotAsync != "enable" {
		t.Fatalf("async header = %q", gotAsync)
	}
	if gotBody["model"] != ModelTextToVideo {
		t.Fatalf("model = %v", gotBody["model"])
	}
}

func TestSubmitNon2xxReturnsSubmissionError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "throttled")
	}))

	_, err := client.SubmitTextToVideo(context.Background(), TextToVideoInput{Prompt: "x"}, TextToVideoParameters{})
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if subErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status code = %d", subErr.StatusCode)
	}
	if !strings.Contains(subErr.Body, "throttled") {
		t.Fatalf("body = %q", subErr.Body)
	}
	if !strings.Contains(subErr.Error(), "503") {
		t.Fatalf("error string should carry the status code: %q", subErr.Error())
	}
}

func TestWaitForTaskRunningThenSucceeded(t *testing.T) {
	const runningCalls = 3
	var queries atomic.Int64

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := queries.Add(1)
		status := TaskRunning
		videoURL := ""
		if n > runningCalls {
			status = TaskSucceeded
			videoURL = "https://x/file.mp4"
		}
		_ = json.NewEncoder(w).Encode(queryResponse(status, "T1", videoURL))
	}))

	var progress []int
	resp, err := client.WaitForTask(context.Background(), "T1", func(status TaskStatus, attempt int) {
		progress = append(progress, attempt)
	})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if resp.Output.VideoURL != "https://x/file.mp4" {
		t.Fatalf("video url = %q", resp.Output.VideoURL)
	}
	if got := queries.Load(); got != runningCalls+1 {
		t.Fatalf("query count = %d, want %d", got, runningCalls+1)
	}
	// Progress fires once per query, starting at attempt 0.
	want := []int{0, 1, 2, 3}
	if len(progress) != len(want) {
		t.Fatalf("progress invocations = %v", progress)
	}
	for i, attempt := range want {
		if progress[i] != attempt {
			t.Fatalf("progress[%d] = %d, want %d", i, progress[i], attempt)
		}
	}
}

func TestWaitForTaskTimesOutAtAttemptCeiling(t *testing.T) {
	var queries atomic.Int64
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries.Add(1)
		_ = json.NewEncoder(w).Encode(queryResponse(TaskRunning, "T1", ""))
	}))

	_, err := client.WaitForTask(context.Background(), "T1", nil)
	var timeoutErr *PollTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected PollTimeoutError, got %v", err)
	}
	if timeoutErr.Attempts != 5 {
		t.Fatalf("attempts = %d, want 5", timeoutErr.Attempts)
	}
	if got := queries.Load(); got != 5 {
		t.Fatalf("query count = %d, want 5", got)
	}
}

func TestWaitForTaskFailedIsImmediate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := queryResponse(TaskFailed, "T1", "")
		resp.Output.Code = "IPInfringementSuspect"
		resp.Output.Message = "content rejected"
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	// A poll interval far longer than the test timeout proves the failure
	// path performs zero sleeps.
	client := NewClient(Config{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		PollInterval: time.Hour,
	})

	start := time.Now()
	_, err := client.WaitForTask(context.Background(), "T1", nil)
	var failErr *RemoteTaskFailedError
	if !errors.As(err, &failErr) {
		t.Fatalf("expected RemoteTaskFailedError, got %v", err)
	}
	if failErr.Code != "IPInfringementSuspect" || failErr.Message != "content rejected" {
		t.Fatalf("error payload = %+v", failErr)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("failed task should not sleep, took %v", elapsed)
	}
}

func TestWaitForTaskUnknownIsNotRetried(t *testing.T) {
	var queries atomic.Int64
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries.Add(1)
		_ = json.NewEncoder(w).Encode(queryResponse(TaskUnknown, "T1", ""))
	}))

	_, err := client.WaitForTask(context.Background(), "T1", nil)
	var notFound *TaskNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected TaskNotFoundError, got %v", err)
	}
	if got := queries.Load(); got != 1 {
		t.Fatalf("query count = %d, want 1", got)
	}
}

func TestWaitForTaskHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(queryResponse(TaskRunning, "T1", ""))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, PollInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.WaitForTask(ctx, "T1", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateFromPromptComposesSubmitAndPoll(t *testing.T) {
	var queries atomic.Int64
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(TaskSubmitResponse{
				Output: taskOutput{TaskStatus: TaskPending, TaskID: "T1"},
			})
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/tasks/T1") {
			t.Errorf("unexpected query path %s", r.URL.Path)
		}
		n := queries.Add(1)
		if n == 1 {
			_ = json.NewEncoder(w).Encode(queryResponse(TaskRunning, "T1", ""))
			return
		}
		resp := queryResponse(TaskSucceeded, "T1", "https://x/file.mp4")
		resp.Usage = &taskUsage{OutputVideoDuration: 5}
		_ = json.NewEncoder(w).Encode(resp)
	}))

	result, err := client.GenerateFromPrompt(context.Background(), "a cable car climbing a hill", GenerateOptions{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.TaskID != "T1" {
		t.Fatalf("task id = %q", result.TaskID)
	}
	if result.VideoURL != "https://x/file.mp4" {
		t.Fatalf("video url = %q", result.VideoURL)
	}
	if result.Duration != 5 {
		t.Fatalf("duration = %v", result.Duration)
	}
}

func TestGenerateFromPromptMissingResultURL(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(TaskSubmitResponse{
				Output: taskOutput{TaskStatus: TaskPending, TaskID: "T1"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(queryResponse(TaskSucceeded, "T1", ""))
	}))

	_, err := client.GenerateFromPrompt(context.Background(), "x", GenerateOptions{})
	var missing *MissingResultError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingResultError, got %v", err)
	}
}

func TestSubmitImageToVideoSelectsModel(t *testing.T) {
	var gotModel string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)
		_ = json.NewEncoder(w).Encode(TaskSubmitResponse{
			Output: taskOutput{TaskStatus: TaskPending, TaskID: "T2"},
		})
	}))

	_, err := client.SubmitImageToVideo(context.Background(),
		ImageToVideoInput{Prompt: "x", ImgURL: "https://img/x.jpg"},
		ImageToVideoParameters{Resolution: "720P"},
		ModelImageToVideoFlash,
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if gotModel != ModelImageToVideoFlash {
		t.Fatalf("model = %q", gotModel)
	}
}
