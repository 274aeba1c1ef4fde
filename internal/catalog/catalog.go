// Package catalog loads the spots document that defines which videos the
// pipeline can generate: each spot carries one era per historical period,
// and each (spot, era) pair is one generation job.
package catalog

import (
	"fmt"
	"strings"

	"timelens/internal/metastore"
	"timelens/internal/model"
)

const DefaultPath = "src/lib/data/spots.json"

type Catalog struct {
	Path  string
	Spots []model.Spot
}

// Pair is one (spot, era) generation identity.
type Pair struct {
	Spot model.Spot
	Era  model.Era
}

func Load(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}

	var data model.SpotsData
	if err := metastore.ReadJSON(path, &data); err != nil {
		return Catalog{}, err
	}

	cat := Catalog{Path: path, Spots: data.Spots}
	if err := cat.validate(); err != nil {
		return Catalog{}, fmt.Errorf("invalid spots document %s: %w", path, err)
	}
	return cat, nil
}

func (c Catalog) validate() error {
	if len(c.Spots) == 0 {
		return fmt.Errorf("no spots defined")
	}
	seen := make(map[string]bool, len(c.Spots))
	for _, spot := range c.Spots {
		id := strings.TrimSpace(spot.ID)
		if id == "" {
			return fmt.Errorf("spot %q has an empty id", spot.Name)
		}
		if seen[id] {
			return fmt.Errorf("duplicate spot id %q", id)
		}
		seen[id] = true
		if len(spot.Eras) == 0 {
			return fmt.Errorf("spot %q has no eras", id)
		}
		eraSeen := make(map[string]bool, len(spot.Eras))
		for _, era := range spot.Eras {
			eid := strings.TrimSpace(era.ID)
			if eid == "" {
				return fmt.Errorf("spot %q has an era with an empty id", id)
			}
			if eraSeen[eid] {
				return fmt.Errorf("spot %q has duplicate era id %q", id, eid)
			}
			eraSeen[eid] = true
		}
	}
	return nil
}

// Spot returns the spot with the given id.
func (c Catalog) Spot(id string) (model.Spot, bool) {
	for _, spot := range c.Spots {
		if spot.ID == id {
			return spot, true
		}
	}
	return model.Spot{}, false
}

// Pairs enumerates every (spot, era) pair in document order.
func (c Catalog) Pairs() []Pair {
	var out []Pair
	for _, spot := range c.Spots {
		for _, era := range spot.Eras {
			out = append(out, Pair{Spot: spot, Era: era})
		}
	}
	return out
}
