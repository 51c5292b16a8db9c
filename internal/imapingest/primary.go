package imapingest

import (
	"context"
	"time"

	"github.com/emersion/go-imap/client"

	"github.com/jcgurango/meremail/internal/config"
	"github.com/jcgurango/meremail/internal/logging"
	"github.com/jcgurango/meremail/internal/metrics"
)

const (
	primaryFolder        = "INBOX"
	idleRestartInterval  = 25 * time.Minute // RFC 2177: servers time out IDLE around 29 minutes.
	initialBackoff       = 5 * time.Second
	maxReconnectBackoff  = 5 * time.Minute
	initialFetchLookback = 24 * time.Hour
)

// runPrimary maintains the primary IDLE loop, reconnecting with exponential
// backoff on any transport failure (spec §4.E "Primary IDLE loop").
func runPrimary(ctx context.Context, cfg config.Config, imp Importer, log logging.Logger) {
	backoff := initialBackoff
	for ctx.Err() == nil {
		c, err := dial(cfg)
		if err != nil {
			log.Error("imapingest: primary connect failed", err)
			metrics.IMAPReconnects.Inc()
			if !sleepBackoff(ctx, &backoff) {
				return
			}
			continue
		}
		backoff = initialBackoff // successful connect resets the backoff

		err = runPrimarySession(ctx, c, imp, log)
		c.Logout()
		if err == nil {
			return // clean shutdown via ctx cancellation
		}
		log.Error("imapingest: primary session ended", err)
		metrics.IMAPReconnects.Inc()
		if !sleepBackoff(ctx, &backoff) {
			return
		}
	}
}

func sleepBackoff(ctx context.Context, backoff *time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(*backoff):
	}
	*backoff *= 2
	if *backoff > maxReconnectBackoff {
		*backoff = maxReconnectBackoff
	}
	return true
}

// runPrimarySession selects the primary folder, performs the initial
// lookback fetch, then idles until ctx is cancelled or the connection
// fails. A nil return means the caller cancelled; non-nil means the
// connection broke and should be retried.
func runPrimarySession(ctx context.Context, c *client.Client, imp Importer, log logging.Logger) error {
	mbox, err := c.Select(primaryFolder, true)
	if err != nil {
		return err
	}

	since := time.Now().UTC().Add(-initialFetchLookback)
	if err := fetchSince(c, primaryFolder, since, imp, log); err != nil {
		log.Error("imapingest: primary initial fetch failed", err)
	}

	lastCount := mbox.Messages
	updates := make(chan client.Update, 32)
	c.Updates = updates

	for {
		if ctx.Err() != nil {
			return nil
		}

		stop := make(chan struct{})
		idleErr := make(chan error, 1)
		go func() {
			idleErr <- c.Idle(stop, nil)
		}()

		timer := time.NewTimer(idleRestartInterval)
		var fetchFrom, fetchTo uint32
		needFetch := false
		exitSession := false

	loop:
		for {
			select {
			case <-ctx.Done():
				exitSession = true
				break loop
			case <-timer.C:
				break loop
			case upd, ok := <-updates:
				if !ok {
					break loop
				}
				mu, isMailboxUpdate := upd.(*client.MailboxUpdate)
				if isMailboxUpdate && mu.Mailbox != nil && mu.Mailbox.Messages > lastCount {
					fetchFrom, fetchTo = lastCount+1, mu.Mailbox.Messages
					needFetch = true
					break loop
				}
			}
		}

		close(stop)
		timer.Stop()
		if err := <-idleErr; err != nil {
			return err
		}
		if exitSession {
			return nil
		}

		if needFetch {
			if err := fetchRange(c, primaryFolder, fetchFrom, fetchTo, imp, log); err != nil {
				log.Error("imapingest: primary delta fetch failed", err)
			}
			lastCount = fetchTo
		}

		if err := c.Noop(); err != nil {
			return err
		}
	}
}
