package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"timelens/internal/model"
	"timelens/internal/videostore"
)

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	spots := fs.String("spots", "", "spots catalog path (default from env)")
	metadata := fs.String("metadata", "", "metadata document path (default from env)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := loadRuntime(*spots, *metadata)
	if err != nil {
		return err
	}

	if fs.NArg() == 0 {
		fmt.Println("Usage: timelens generate <spot-id> [era-id]")
		fmt.Println()
		fmt.Println("Available spots:")
		for _, spot := range rt.cat.Spots {
			fmt.Printf("  - %s: %s (%d eras)\n", spot.ID, spot.Name, len(spot.Eras))
		}
		return fmt.Errorf("spot id required")
	}

	spotID := fs.Arg(0)
	spot, ok := rt.cat.Spot(spotID)
	if !ok {
		return fmt.Errorf("spot %q not found in %s", spotID, rt.cat.Path)
	}

	eras := spot.Eras
	if fs.NArg() > 1 {
		eraID := fs.Arg(1)
		era, ok := findEra(spot, eraID)
		if !ok {
			return fmt.Errorf("era %q not found for spot %q", eraID, spotID)
		}
		eras = []model.Era{era}
	}

	orch, err := rt.orchestrator()
	if err != nil {
		// Missing credential is the one fatal condition.
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Generating videos for %s", spot.Name)))
	fmt.Println(mutedStyle.Render(fmt.Sprintf("  %d era(s), videos dir %s", len(eras), rt.cfg.VideosDir)))

	succeeded := 0
	results := make([]videostore.Result, 0, len(eras))
	for _, era := range eras {
		fmt.Printf("\n%s (%d)\n", headerStyle.Render(era.Title), era.YearStart)
		result := orch.GenerateAndStore(context.Background(), spot, era, videostore.Options{
			OnProgress: progressPrinter(era.Title),
		})
		results = append(results, result)
		if result.Success {
			succeeded++
		}
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Summary"))
	for i, result := range results {
		era := eras[i]
		if result.Success {
			fmt.Printf("  %s %s: %s\n", okStyle.Render("✓"), era.Title, result.LocalPath)
		} else {
			fmt.Printf("  %s %s: %s\n", errorStyle.Render("✗"), era.Title, result.Error)
		}
	}
	fmt.Printf("  %d/%d succeeded\n", succeeded, len(results))

	// Per-job failures are recorded in the store, not turned into a
	// non-zero exit.
	return nil
}

func findEra(spot model.Spot, eraID string) (model.Era, bool) {
	for _, era := range spot.Eras {
		if era.ID == eraID {
			return era, true
		}
	}
	return model.Era{}, false
}

// progressPrinter renders live progress events for one era. Poll updates
// are throttled to every fifth attempt to keep long generations readable.
func progressPrinter(label string) func(videostore.ProgressEvent) {
	return func(ev videostore.ProgressEvent) {
		switch ev.Stage {
		case videostore.StageSubmitting:
			fmt.Printf("  [%s] submitting task\n", label)
		case videostore.StageGenerating:
			if ev.Attempt == 0 || ev.Attempt%5 == 0 {
				fmt.Printf("  [%s] %s\n", label, ev.Message)
			}
		case videostore.StageDownloading:
			fmt.Printf("  [%s] downloading video\n", label)
		case videostore.StageComplete:
			fmt.Printf("  [%s] %s\n", label, ev.Message)
		}
	}
}
