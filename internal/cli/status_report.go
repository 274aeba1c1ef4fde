package cli

import (
	"os"
	"time"

	"timelens/internal/catalog"
	"timelens/internal/model"
)

type eraStatus struct {
	SpotID         string `json:"spotId"`
	EraID          string `json:"eraId"`
	EraTitle       string `json:"eraTitle"`
	YearStart      int    `json:"yearStart"`
	Status         string `json:"status"` // metadata status, or "missing"
	LocalPath      string `json:"localPath,omitempty"`
	Error          string `json:"error,omitempty"`
	ElapsedMinutes int    `json:"elapsedMinutes,omitempty"`
	FileMissing    bool   `json:"fileMissing,omitempty"`
}

type spotStatus struct {
	SpotID   string      `json:"spotId"`
	SpotName string      `json:"spotName"`
	Eras     []eraStatus `json:"eras"`
}

type statusSummary struct {
	TotalEras    int `json:"totalEras"`
	Ready        int `json:"ready"`
	Generating   int `json:"generating"`
	Failed       int `json:"failed"`
	Pending      int `json:"pending"`
	Missing      int `json:"missing"`
	FilesMissing int `json:"filesMissing,omitempty"`
}

type statusReport struct {
	Spots     []spotStatus  `json:"spots"`
	Summary   statusSummary `json:"summary"`
	NeedsWork []string      `json:"needsWork,omitempty"`
}

const statusMissing = "missing"

// buildStatusReport joins the catalog against the metadata entries. statFn
// lets tests (and the report itself) check whether a ready entry's file
// still exists; nil uses the real filesystem.
func buildStatusReport(cat catalog.Catalog, entries []model.VideoMetadataEntry, now time.Time, statFn func(string) bool) statusReport {
	if statFn == nil {
		statFn = func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}

	index := make(map[[2]string]model.VideoMetadataEntry, len(entries))
	for _, e := range entries {
		index[[2]string{e.SpotID, e.EraID}] = e
	}

	var report statusReport
	for _, spot := range cat.Spots {
		ss := spotStatus{SpotID: spot.ID, SpotName: spot.Name}
		for _, era := range spot.Eras {
			report.Summary.TotalEras++
			es := eraStatus{SpotID: spot.ID, EraID: era.ID, EraTitle: era.Title, YearStart: era.YearStart}

			entry, ok := index[[2]string{spot.ID, era.ID}]
			if !ok {
				es.Status = statusMissing
				report.Summary.Missing++
				report.NeedsWork = append(report.NeedsWork, spot.ID+" / "+era.ID)
				ss.Eras = append(ss.Eras, es)
				continue
			}

			es.Status = entry.Status
			switch entry.Status {
			case model.StatusReady:
				report.Summary.Ready++
				es.LocalPath = entry.LocalPath
				if !statFn(entry.LocalPath) {
					es.FileMissing = true
					report.Summary.FilesMissing++
				}
			case model.StatusGenerating:
				report.Summary.Generating++
				if createdAt, err := time.Parse(time.RFC3339, entry.CreatedAt); err == nil {
					es.ElapsedMinutes = int(now.Sub(createdAt) / time.Minute)
				}
			case model.StatusFailed:
				report.Summary.Failed++
				es.Error = entry.Error
				report.NeedsWork = append(report.NeedsWork, spot.ID+" / "+era.ID)
			case model.StatusPending:
				report.Summary.Pending++
			}
			ss.Eras = append(ss.Eras, es)
		}
		report.Spots = append(report.Spots, ss)
	}
	return report
}
