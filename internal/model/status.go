package model

import "fmt"

const (
	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// allowedTransitions maps a current status to the statuses a record may move
// to. The empty string is the implicit pending state of a record that does
// not exist yet. generating -> generating covers checkpoint rewrites of an
// in-flight record; ready/failed -> generating covers explicit re-attempts,
// which overwrite the previous artifact.
var allowedTransitions = map[string]map[string]bool{
	"": {
		StatusPending:    true,
		StatusGenerating: true,
		StatusFailed:     true,
	},
	StatusPending: {
		StatusPending:    true,
		StatusGenerating: true,
		StatusFailed:     true,
	},
	StatusGenerating: {
		StatusGenerating: true,
		StatusReady:      true,
		StatusFailed:     true,
	},
	StatusReady: {
		StatusReady:      true,
		StatusGenerating: true,
		StatusFailed:     true,
	},
	StatusFailed: {
		StatusFailed:     true,
		StatusGenerating: true,
		StatusPending:    true,
	},
}

func IsKnownStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// ValidateEntry checks the record invariants: a known status, a non-empty
// path for ready records, and a non-empty error for failed records.
func ValidateEntry(entry VideoMetadataEntry) error {
	if entry.SpotID == "" || entry.EraID == "" {
		return fmt.Errorf("metadata entry requires spotId and eraId (got %q/%q)", entry.SpotID, entry.EraID)
	}
	if entry.Status == "" || !IsKnownStatus(entry.Status) {
		return fmt.Errorf("unknown video status %q (spot=%s era=%s)", entry.Status, entry.SpotID, entry.EraID)
	}
	if entry.Status == StatusReady && entry.LocalPath == "" {
		return fmt.Errorf("ready entry missing localPath (spot=%s era=%s)", entry.SpotID, entry.EraID)
	}
	if entry.Status == StatusFailed && entry.Error == "" {
		return fmt.Errorf("failed entry missing error (spot=%s era=%s)", entry.SpotID, entry.EraID)
	}
	return nil
}
