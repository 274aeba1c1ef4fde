package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"timelens/internal/config"
	"timelens/internal/metastore"
	"timelens/internal/model"
	"timelens/internal/r2"
)

func runUpload(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	metadata := fs.String("metadata", "", "metadata document path (default from env)")
	bucket := fs.String("bucket", "", "bucket name (default from env)")
	videosDir := fs.String("videos-dir", "", "videos directory (default from env)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *metadata != "" {
		cfg.MetadataPath = *metadata
	}
	if *bucket != "" {
		cfg.R2.Bucket = *bucket
	}
	if *videosDir != "" {
		cfg.VideosDir = *videosDir
	}
	if err := cfg.RequireR2(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	uploader, err := r2.NewUploader(
		r2.WithEndpoint(cfg.R2.Endpoint),
		r2.WithBucket(cfg.R2.Bucket),
		r2.WithCredentials(cfg.R2.AccessKey, cfg.R2.SecretKey),
		r2.WithSSL(cfg.R2.UseSSL),
	)
	if err != nil {
		return err
	}

	ctx := context.Background()
	fmt.Println(titleStyle.Render("Uploading videos to " + uploader.Bucket()))

	if err := uploader.EnsureBucket(ctx); err != nil {
		return err
	}

	summary, err := uploader.UploadVideos(ctx, cfg.VideosDir)
	if err != nil {
		return err
	}
	for _, f := range summary.Files {
		if f.Err == "" {
			fmt.Printf("  %s %s\n", okStyle.Render("✓"), f.File)
		} else {
			fmt.Printf("  %s %s: %s\n", errorStyle.Render("✗"), f.File, f.Err)
		}
	}
	fmt.Printf("\nUploaded %d/%d videos\n", summary.Uploaded, summary.Uploaded+summary.Failed)

	if cfg.R2.PublicBaseURL != "" && summary.Uploaded > 0 {
		store := metastore.New(cfg.MetadataPath)
		updated, err := rewritePublicURLs(store, summary, cfg.R2.PublicBaseURL)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %d metadata record(s) with public URLs\n", updated)
	}
	return nil
}

// rewritePublicURLs stamps a public URL onto every ready record whose file
// was uploaded in this batch.
func rewritePublicURLs(store *metastore.Store, summary r2.UploadSummary, publicBaseURL string) (int, error) {
	uploaded := make(map[string]string, len(summary.Files))
	for _, f := range summary.Files {
		if f.Err == "" {
			uploaded[f.File] = strings.TrimSuffix(publicBaseURL, "/") + "/" + f.Key
		}
	}

	entries, err := store.GetAll()
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, entry := range entries {
		if entry.Status != model.StatusReady || entry.LocalPath == "" {
			continue
		}
		url, ok := uploaded[filepath.Base(entry.LocalPath)]
		if !ok || entry.R2URL == url {
			continue
		}
		entry.R2URL = url
		if err := store.Upsert(entry); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
