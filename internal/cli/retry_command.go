package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"timelens/internal/videostore"
)

func runRetryFailed(args []string) error {
	fs := flag.NewFlagSet("retry-failed", flag.ContinueOnError)
	spots := fs.String("spots", "", "spots catalog path (default from env)")
	metadata := fs.String("metadata", "", "metadata document path (default from env)")
	delay := fs.Duration("delay", 5*time.Second, "pause between retries")
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

	failed := findFailed(rt.cat, entries)
	if len(failed) == 0 {
		fmt.Println(okStyle.Render("No failed videos to retry."))
		return nil
	}

	orch, err := rt.orchestrator()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Retrying %d failed video(s)", len(failed))))

	succeeded := 0
	for i, item := range failed {
		if i > 0 && *delay > 0 {
			time.Sleep(*delay)
		}
		pair := item.Pair
		label := fmt.Sprintf("[%d/%d] %s - %s", i+1, len(failed), pair.Spot.Name, pair.Era.Title)
		fmt.Printf("\n%s\n", headerStyle.Render(label))
		fmt.Println(mutedStyle.Render("  previous error: " + item.Entry.Error))

		// A recorded prompt from the earlier attempt wins over the catalog
		// text so regenerations stay comparable to what was audited.
		era := pair.Era
		if item.Entry.Prompt != "" {
			era.WanPrompt = item.Entry.Prompt
		}

		result := orch.GenerateAndStore(context.Background(), pair.Spot, era, videostore.Options{
			OnProgress: progressPrinter(pair.Era.Title),
		})
		if result.Success {
			succeeded++
		}
	}

	fmt.Println()
	fmt.Printf("%s %d/%d retries succeeded\n", headerStyle.Render("Done:"), succeeded, len(failed))
	return nil
}
