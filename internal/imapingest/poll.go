package imapingest

import (
	"context"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/jcgurango/meremail/internal/config"
	"github.com/jcgurango/meremail/internal/logging"
	"github.com/jcgurango/meremail/internal/store"
)

const secondaryPollInterval = 15 * time.Minute

// runSecondaryPoll sweeps the configured auxiliary folders on a fixed tick,
// opening and closing a dedicated connection each sweep (spec §4.E
// "Secondary polling loop").
func runSecondaryPoll(ctx context.Context, cfg config.Config, st *store.Store, imp Importer, log logging.Logger) {
	if len(cfg.IMAPAuxFolders) == 0 {
		return
	}

	sweep := func() {
		if err := runAuxSweep(cfg, st, imp, log); err != nil {
			log.Error("imapingest: auxiliary sweep failed", err)
		}
	}

	sweep()

	ticker := time.NewTicker(secondaryPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

func runAuxSweep(cfg config.Config, st *store.Store, imp Importer, log logging.Logger) error {
	c, err := dial(cfg)
	if err != nil {
		return err
	}
	defer c.Logout()

	auxSet := make(map[string]bool, len(cfg.IMAPAuxFolders))
	for _, f := range cfg.IMAPAuxFolders {
		auxSet[strings.ToLower(f)] = true
	}

	mailboxes := make(chan *imap.MailboxInfo, 16)
	listDone := make(chan error, 1)
	go func() {
		listDone <- c.List("", "*", mailboxes)
	}()
	var names []string
	for m := range mailboxes {
		if auxSet[strings.ToLower(m.Name)] {
			names = append(names, m.Name)
		}
	}
	if err := <-listDone; err != nil {
		return err
	}

	for _, name := range names {
		if err := pollFolder(c, name, st, imp, log); err != nil {
			log.Error("imapingest: poll folder failed: "+name, err)
		}
	}
	return nil
}

// pollFolder fetches everything since the per-folder watermark and advances
// it on completion. A UIDVALIDITY change resets the watermark to the
// default lookback rather than risk misinterpreting sequence numbers
// against a renumbered mailbox (spec §4.E, §9 Open Question).
func pollFolder(c *client.Client, folder string, st *store.Store, imp Importer, log logging.Logger) error {
	mbox, err := c.Select(folder, true)
	if err != nil {
		return err
	}

	state, err := st.GetIngestionState(folder, time.Now().UTC().Add(-initialFetchLookback))
	if err != nil {
		return err
	}

	since := state.LastSyncAt
	if state.UIDValidity != 0 && mbox.UidValidity != state.UIDValidity {
		log.Warn("imapingest: uidvalidity changed for folder %q, resetting watermark", folder)
		since = time.Now().UTC().Add(-initialFetchLookback)
	}

	if err := fetchSince(c, folder, since, imp, log); err != nil {
		return err
	}

	return st.UpdateIngestionState(folder, time.Now().UTC(), mbox.UidValidity)
}
