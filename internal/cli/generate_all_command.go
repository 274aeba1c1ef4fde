package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"timelens/internal/catalog"
	"timelens/internal/videostore"
)

// maxBatchWorkers caps in-process concurrency. The shared metadata document
// offers no cross-writer guarantees, so batches stay deliberately small.
const maxBatchWorkers = 2

func runGenerateAll(args []string) error {
	fs := flag.NewFlagSet("generate-all", flag.ContinueOnError)
	spots := fs.String("spots", "", "spots catalog path (default from env)")
	metadata := fs.String("metadata", "", "metadata document path (default from env)")
	limit := fs.Int("limit", 0, "max videos to generate this invocation (0 = no limit)")
	concurrency := fs.Int("concurrency", 1, "parallel generations (capped at 2)")
	delay := fs.Duration("delay", 5*time.Second, "pause between jobs handed to each worker")
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

	missing := findMissing(rt.cat, entries)
	if len(missing) == 0 {
		fmt.Println(okStyle.Render("All videos already generated."))
		fmt.Println(mutedStyle.Render("To regenerate a video, run: timelens generate <spot-id> <era-id>"))
		return nil
	}
	if *limit > 0 && len(missing) > *limit {
		missing = missing[:*limit]
	}

	orch, err := rt.orchestrator()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	workers := *concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > maxBatchWorkers {
		workers = maxBatchWorkers
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Generating %d missing video(s)", len(missing))))
	fmt.Println(mutedStyle.Render(fmt.Sprintf("  workers=%d delay=%s (estimated ~7 min per video)", workers, *delay)))

	results := runBatch(context.Background(), orch, missing, workers, *delay)

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Generation complete"))
	fmt.Printf("  Successful: %d/%d\n", succeeded, len(results))
	fmt.Printf("  Failed:     %d/%d\n", len(results)-succeeded, len(results))
	for _, r := range results {
		if !r.Success {
			fmt.Printf("  %s %s / %s: %s\n", errorStyle.Render("✗"), r.SpotID, r.EraID, r.Error)
		}
	}
	fmt.Println(mutedStyle.Render("  Videos saved to: " + rt.cfg.VideosDir))
	fmt.Println(mutedStyle.Render("  Metadata updated: " + rt.store.Path()))

	// Failures are recorded per job; the batch itself exits 0.
	return nil
}

// runBatch feeds pairs to a small worker pool. Each worker pauses between
// jobs so a 2-worker batch never hammers the API.
func runBatch(ctx context.Context, orch *videostore.Orchestrator, pairs []catalog.Pair, workers int, delay time.Duration) []videostore.Result {
	jobCh := make(chan int)
	results := make([]videostore.Result, len(pairs))

	var printMu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first := true
			for i := range jobCh {
				if !first && delay > 0 {
					time.Sleep(delay)
				}
				first = false

				pair := pairs[i]
				label := fmt.Sprintf("[%d/%d] %s - %s", i+1, len(pairs), pair.Spot.Name, pair.Era.Title)
				printMu.Lock()
				fmt.Printf("%s: starting\n", label)
				printMu.Unlock()

				result := orch.GenerateAndStore(ctx, pair.Spot, pair.Era, videostore.Options{
					OnProgress: func(ev videostore.ProgressEvent) {
						if ev.Stage == videostore.StageGenerating && ev.Attempt%5 != 0 {
							return
						}
						printMu.Lock()
						fmt.Printf("%s: %s\n", label, ev.Message)
						printMu.Unlock()
					},
				})
				results[i] = result

				printMu.Lock()
				if result.Success {
					fmt.Printf("%s: %s %s\n", label, okStyle.Render("done"), result.LocalPath)
				} else {
					fmt.Printf("%s: %s %s\n", label, errorStyle.Render("failed"), result.Error)
				}
				printMu.Unlock()
			}
		}()
	}

	for i := range pairs {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()
	return results
}
