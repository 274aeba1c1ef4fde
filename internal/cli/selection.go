package cli

import (
	"time"

	"timelens/internal/catalog"
	"timelens/internal/model"
)

// findMissing returns the catalog pairs that still need generation: no
// metadata entry at all, or one that is neither ready nor currently
// generating. Entries in generating are skipped so racing batches don't
// double-submit work that another process is already waiting on.
func findMissing(cat catalog.Catalog, entries []model.VideoMetadataEntry) []catalog.Pair {
	index := make(map[[2]string]model.VideoMetadataEntry, len(entries))
	for _, e := range entries {
		index[[2]string{e.SpotID, e.EraID}] = e
	}

	var missing []catalog.Pair
	for _, pair := range cat.Pairs() {
		entry, ok := index[[2]string{pair.Spot.ID, pair.Era.ID}]
		if ok && (entry.Status == model.StatusReady || entry.Status == model.StatusGenerating) {
			continue
		}
		missing = append(missing, pair)
	}
	return missing
}

// findFailed returns the catalog pairs whose metadata entry is failed,
// along with the recorded entry (its prompt is reused for the retry).
func findFailed(cat catalog.Catalog, entries []model.VideoMetadataEntry) []failedPair {
	index := make(map[[2]string]model.VideoMetadataEntry, len(entries))
	for _, e := range entries {
		if e.Status == model.StatusFailed {
			index[[2]string{e.SpotID, e.EraID}] = e
		}
	}

	var out []failedPair
	for _, pair := range cat.Pairs() {
		if entry, ok := index[[2]string{pair.Spot.ID, pair.Era.ID}]; ok {
			out = append(out, failedPair{Pair: pair, Entry: entry})
		}
	}
	return out
}

type failedPair struct {
	Pair  catalog.Pair
	Entry model.VideoMetadataEntry
}

// findStuck returns entries that have sat in generating longer than the
// threshold, measured from CreatedAt against now. Records with unparsable
// timestamps are treated as stuck: they cannot prove they are fresh.
func findStuck(entries []model.VideoMetadataEntry, threshold time.Duration, now time.Time) []model.VideoMetadataEntry {
	var stuck []model.VideoMetadataEntry
	for _, e := range entries {
		if e.Status != model.StatusGenerating {
			continue
		}
		createdAt, err := time.Parse(time.RFC3339, e.CreatedAt)
		if err != nil || now.Sub(createdAt) > threshold {
			stuck = append(stuck, e)
		}
	}
	return stuck
}
