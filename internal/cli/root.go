// Package cli implements the timelens command surface: generation batches,
// status reporting, stuck-job reconciliation, and publishing.
package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	var err error
	switch args[0] {
	case "generate":
		err = runGenerate(args[1:])
	case "generate-all":
		err = runGenerateAll(args[1:])
	case "retry-failed":
		err = runRetryFailed(args[1:])
	case "status":
		err = runStatus(args[1:])
	case "unstick":
		err = runUnstick(args[1:])
	case "upload":
		err = runUpload(args[1:])
	case "browse":
		err = runBrowse(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	return err
}

func printRootUsage() {
	fmt.Println("timelens: generate and manage era videos for TimeLens spots")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  export DASHSCOPE_API_KEY=your-api-key")
	fmt.Println("  timelens status")
	fmt.Println("  timelens generate-all")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  generate      generate videos for one spot (optionally one era)")
	fmt.Println("  generate-all  generate every missing or failed video")
	fmt.Println("  retry-failed  re-run videos currently marked failed")
	fmt.Println("  status        report video status for every spot and era")
	fmt.Println("  unstick       mark long-running generating entries as failed")
	fmt.Println("  upload        upload generated videos to the R2 bucket")
	fmt.Println("  browse        interactive spot/era status browser")
	fmt.Println()
	fmt.Println("The metadata document is shared between invocations without locking;")
	fmt.Println("keep concurrent batches small (generate-all caps workers at 2) and")
	fmt.Println("avoid running two batches over the same spots at once.")
	fmt.Println()
	fmt.Println("Run 'timelens <command> -h' for command flags.")
}
