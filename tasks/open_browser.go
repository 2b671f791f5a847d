package tasks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"smsdash/internal/browser"
)

// OpenBrowserTask opens the dashboard URL once the scheduler's delay has
// passed. A failure is logged with a hint to open the URL by hand; the
// dashboard keeps running either way.
type OpenBrowserTask struct {
	url    string
	opener browser.Opener
}

// NewOpenBrowserTask creates a task that opens url with opener.
func NewOpenBrowserTask(url string, opener browser.Opener) *OpenBrowserTask {
	return &OpenBrowserTask{
		url:    url,
		opener: opener,
	}
}

// Name identifies the task in scheduler logs.
func (t *OpenBrowserTask) Name() string {
	return "open-browser"
}

// Run opens the URL unless the dashboard has already stopped.
func (t *OpenBrowserTask) Run(ctx context.Context) error {
	// Server already gone.
	if ctx.Err() != nil {
		return nil
	}

	log.Info().Str("url", t.url).Msg("Opening browser")
	if err := t.opener.Open(t.url); err != nil {
		log.Warn().Str("url", t.url).Msg("Could not open a browser, open the dashboard manually")
		return fmt.Errorf("failed to open %s: %w", t.url, err)
	}
	return nil
}
