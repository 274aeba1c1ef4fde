package cli

import (
	"flag"
	"fmt"
	"time"
)

func runUnstick(args []string) error {
	fs := flag.NewFlagSet("unstick", flag.ContinueOnError)
	metadata := fs.String("metadata", "", "metadata document path (default from env)")
	threshold := fs.Int("threshold-minutes", 20, "minutes in generating before an entry counts as stuck")
	dryRun := fs.Bool("dry-run", false, "report stuck entries without modifying them")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	// unstick needs no catalog and no API key; it reconciles the store
	// against wall-clock time only.
	store, err := loadStore(*metadata)
	if err != nil {
		return err
	}

	entries, err := store.GetAll()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	stuck := findStuck(entries, time.Duration(*threshold)*time.Minute, now)
	if len(stuck) == 0 {
		fmt.Println(okStyle.Render("No stuck videos found."))
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Found %d video(s) stuck in generating", len(stuck))))
	for _, entry := range stuck {
		elapsed := "unknown time"
		if createdAt, err := time.Parse(time.RFC3339, entry.CreatedAt); err == nil {
			elapsed = fmt.Sprintf("%d minutes", int(now.Sub(createdAt)/time.Minute))
		}
		fmt.Printf("  %s / %s  stuck for %s\n", entry.SpotID, entry.EraID, elapsed)

		if *dryRun {
			continue
		}
		msg := fmt.Sprintf("video generation timed out after %s - likely failed on server", elapsed)
		if err := store.MarkFailed(entry.SpotID, entry.EraID, msg); err != nil {
			return err
		}
	}

	if *dryRun {
		fmt.Println(mutedStyle.Render("Dry run: no entries modified."))
		return nil
	}
	fmt.Println(okStyle.Render("All stuck videos marked as failed."))
	fmt.Println(mutedStyle.Render("Run 'timelens retry-failed' or 'timelens generate-all' to regenerate them."))
	return nil
}
