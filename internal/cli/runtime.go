package cli

import (
	"fmt"

	"timelens/internal/catalog"
	"timelens/internal/config"
	"timelens/internal/metastore"
	"timelens/internal/videostore"
	"timelens/internal/wanx"
)

// runtime bundles what every command needs: configuration, the spots
// catalog, and the shared metadata store.
type runtime struct {
	cfg   config.Config
	cat   catalog.Catalog
	store *metastore.Store
}

// loadRuntime honors optional flag overrides for the spots and metadata
// paths (empty means the configured value).
func loadRuntime(spotsPath, metadataPath string) (runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return runtime{}, err
	}
	if spotsPath != "" {
		cfg.SpotsPath = spotsPath
	}
	if metadataPath != "" {
		cfg.MetadataPath = metadataPath
	}

	cat, err := catalog.Load(cfg.SpotsPath)
	if err != nil {
		return runtime{}, fmt.Errorf("load spots catalog: %w", err)
	}

	return runtime{
		cfg:   cfg,
		cat:   cat,
		store: metastore.New(cfg.MetadataPath),
	}, nil
}

// loadStore opens the metadata store for commands that don't need the
// spots catalog.
func loadStore(metadataPath string) (*metastore.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if metadataPath != "" {
		cfg.MetadataPath = metadataPath
	}
	return metastore.New(cfg.MetadataPath), nil
}

// orchestrator builds the generation workflow for commands that submit
// work. The API key requirement is enforced here, before any job starts.
func (rt runtime) orchestrator() (*videostore.Orchestrator, error) {
	if err := rt.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	client := wanx.NewClient(wanx.Config{
		APIKey:          rt.cfg.APIKey,
		BaseURL:         rt.cfg.BaseURL,
		PollInterval:    rt.cfg.PollInterval(),
		MaxPollAttempts: rt.cfg.MaxPollAttempts,
	})
	return videostore.New(rt.store, client, rt.cfg.VideosDir), nil
}
