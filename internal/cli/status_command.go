package cli

import (
	"flag"
	"fmt"
	"time"

	"timelens/internal/model"
)

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	spots := fs.String("spots", "", "spots catalog path (default from env)")
	metadata := fs.String("metadata", "", "metadata document path (default from env)")
	asJSON := fs.Bool("json", false, "emit machine-readable JSON")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := loadRuntime(*spots, *metadata)
	if err != nil {
		return err
	}
	entries, err := rt.store.GetAll()
	if err != nil {
		return err
	}

	report := buildStatusReport(rt.cat, entries, time.Now().UTC(), nil)

	if *asJSON {
		return printJSON(report)
	}

	fmt.Println(titleStyle.Render("Video Status Report"))
	for _, spot := range report.Spots {
		fmt.Printf("\n%s %s\n", headerStyle.Render(spot.SpotName), mutedStyle.Render("("+spot.SpotID+")"))
		for _, era := range spot.Eras {
			fmt.Printf("  %s (%d)\n", era.EraTitle, era.YearStart)
			switch era.Status {
			case model.StatusReady:
				line := okStyle.Render("ready") + "  " + era.LocalPath
				if era.FileMissing {
					line += "  " + warnStyle.Render("(file missing on disk)")
				}
				fmt.Println("    " + line)
			case model.StatusGenerating:
				fmt.Printf("    %s  started %d min ago\n", warnStyle.Render("generating"), era.ElapsedMinutes)
			case model.StatusFailed:
				fmt.Printf("    %s  %s\n", errorStyle.Render("failed"), era.Error)
			case model.StatusPending:
				fmt.Println("    " + mutedStyle.Render("pending"))
			default:
				fmt.Println("    " + errorStyle.Render("missing") + "  " + mutedStyle.Render("no metadata entry"))
			}
		}
	}

	s := report.Summary
	fmt.Println()
	fmt.Println(headerStyle.Render("Summary"))
	fmt.Printf("  Total eras: %d\n", s.TotalEras)
	fmt.Printf("  Ready: %d  Generating: %d  Failed: %d  Pending: %d  Missing: %d\n",
		s.Ready, s.Generating, s.Failed, s.Pending, s.Missing)
	if s.FilesMissing > 0 {
		fmt.Println("  " + warnStyle.Render(fmt.Sprintf("%d ready video(s) missing on disk", s.FilesMissing)))
	}
	if len(report.NeedsWork) > 0 {
		fmt.Printf("\n%s\n", headerStyle.Render("Needs generation"))
		for _, id := range report.NeedsWork {
			fmt.Println("  - " + id)
		}
	}
	return nil
}
