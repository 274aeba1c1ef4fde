// Package prompt assembles the text sent to the video generation API.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"timelens/internal/model"
)

// Limit is the WAN API's prompt length ceiling.
const Limit = 1500

// Build returns the prompt for an era, clamped to the API limit. The base
// prompt is the era's authored text; enrichment heuristics are deliberately
// out of scope here.
func Build(era model.Era) string {
	p := strings.TrimSpace(era.WanPrompt)
	if p == "" {
		p = strings.TrimSpace(era.Description)
	}
	if len(p) <= Limit {
		return p
	}
	return strings.TrimSpace(p[:Limit])
}

// Validate checks a prompt against the API requirements.
func Validate(p string) error {
	if strings.TrimSpace(p) == "" {
		return errors.New("prompt cannot be empty")
	}
	if len(p) > Limit {
		return fmt.Errorf("prompt exceeds %d character limit (%d)", Limit, len(p))
	}
	return nil
}
