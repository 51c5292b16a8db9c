package imapingest

import (
	"context"
	"sync"

	"github.com/jcgurango/meremail/internal/config"
	"github.com/jcgurango/meremail/internal/logging"
	"github.com/jcgurango/meremail/internal/store"
)

// Run starts the primary IDLE loop and the secondary polling loop and
// blocks until both exit (spec §4.E, §5 "parallel threads"). Cancel ctx to
// stop both cleanly.
func Run(ctx context.Context, cfg config.Config, st *store.Store, imp Importer) {
	log := logging.Logger{Name: "imapingest"}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runPrimary(ctx, cfg, imp, log)
	}()
	go func() {
		defer wg.Done()
		runSecondaryPoll(ctx, cfg, st, imp, log)
	}()
	wg.Wait()
}
