package wanx

import "fmt"

// SubmissionError reports a non-2xx HTTP response from the DashScope API on
// either submit or status query.
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("dashscope api error (%d): %s", e.StatusCode, e.Body)
}

// RemoteTaskFailedError reports a task the service explicitly marked FAILED.
type RemoteTaskFailedError struct {
	TaskID  string
	Code    string
	Message string
}

func (e *RemoteTaskFailedError) Error() string {
	code := e.Code
	if code == "" {
		code = "UnknownError"
	}
	return fmt.Sprintf("task %s failed: %s - %s", e.TaskID, code, e.Message)
}

// TaskNotFoundError reports a task the service no longer knows about. The
// remote task vanished or expired; retrying the query will not help.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %s not found or expired", e.TaskID)
}

// PollTimeoutError reports that the attempt ceiling was exhausted while the
// task remained non-terminal.
type PollTimeoutError struct {
	TaskID   string
	Attempts int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("task %s timed out after %d poll attempts", e.TaskID, e.Attempts)
}

// MissingResultError reports a SUCCEEDED task whose response carried no
// video URL.
type MissingResultError struct {
	TaskID string
}

func (e *MissingResultError) Error() string {
	return fmt.Sprintf("task %s succeeded but returned no video URL", e.TaskID)
}
