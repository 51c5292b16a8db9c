package sendqueue

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"github.com/jcgurango/meremail/internal/config"
	"github.com/jcgurango/meremail/internal/logging"
	"github.com/jcgurango/meremail/internal/metrics"
	"github.com/jcgurango/meremail/internal/store"
)

const (
	tickInterval    = 30 * time.Second
	maxSendAttempts = 5
)

// backoffSchedule is indexed by min(sendAttempts-1, len-1) (spec §4.F
// "Schedulability").
var backoffSchedule = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	1 * time.Hour,
	4 * time.Hour,
}

// Queue processes outbound messages in queued state on a fixed tick, with
// a bounded worker pool built on a weighted semaphore (spec §4.F, §9 Open
// Question #2).
type Queue struct {
	store       *store.Store
	cfg         config.Config
	log         logging.Logger
	concurrency int
}

func New(st *store.Store, cfg config.Config, concurrency int) *Queue {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Queue{store: st, cfg: cfg, log: logging.Logger{Name: "sendqueue"}, concurrency: concurrency}
}

// Run ticks every 30s until ctx is cancelled (spec §4.F "Runs on a fixed
// tick").
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	q.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.tick(ctx)
		}
	}
}

func (q *Queue) tick(ctx context.Context) {
	msgs, err := q.store.ListQueuedMessages()
	if err != nil {
		q.log.Error("sendqueue: list queued messages failed", err)
		return
	}

	sem := semaphore.NewWeighted(int64(q.concurrency))
	var wg sync.WaitGroup
	now := time.Now().UTC()

	var depth int
	for i := range msgs {
		if eligible(msgs[i], now) {
			depth++
		}
	}
	metrics.QueueDepth.Set(float64(depth))

	for i := range msgs {
		m := msgs[i]
		if !eligible(m, now) {
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return
		}

		wg.Add(1)
		go func(m store.Message) {
			defer wg.Done()
			defer sem.Release(1)
			q.process(m)
		}(m)
	}

	wg.Wait()
}

// eligible implements spec §4.F "Schedulability": attempts exhausted or the
// next backoff window hasn't elapsed yet both mean "skip this tick".
func eligible(m store.Message, now time.Time) bool {
	if m.SendAttempts == 0 {
		return true
	}
	if m.SendAttempts >= maxSendAttempts {
		return false
	}
	if m.LastSendAttemptAt == nil {
		return true
	}
	idx := m.SendAttempts - 1
	if idx >= len(backoffSchedule) {
		idx = len(backoffSchedule) - 1
	}
	return now.After(m.LastSendAttemptAt.Add(backoffSchedule[idx]))
}

func (q *Queue) process(m store.Message) {
	sendable, err := buildSendable(q.store, &m)
	if err != nil {
		q.recordFailure(m, err)
		return
	}

	serverMessageID, err := deliver(q.cfg, sendable)
	if err != nil {
		q.recordFailure(m, err)
		return
	}

	now := time.Now().UTC()
	if err := q.store.MarkSent(m.ID, serverMessageID, now); err != nil {
		q.log.Error("sendqueue: mark sent failed", err)
		return
	}

	if m.ThreadID != nil {
		if err := q.clearReplyLater(*m.ThreadID); err != nil {
			q.log.Error("sendqueue: clear reply-later failed", err)
		}
	}
}

// clearReplyLater implements spec §4.F "Thread state reconciliation".
func (q *Queue) clearReplyLater(threadID uint) error {
	return q.store.Tx(func(tx *gorm.DB) error {
		return q.store.ClearReplyLaterIfSettled(tx, threadID)
	})
}

func (q *Queue) recordFailure(m store.Message, sendErr error) {
	now := time.Now().UTC()
	attempts := m.SendAttempts + 1
	if err := q.store.RecordSendFailure(m.ID, attempts, now, sendErr.Error()); err != nil {
		q.log.Error("sendqueue: record failure failed", err)
	}
}
