package saleledger

import (
	"context"
	"time"

	"github.com/xraph/saleledger/journal"
)

// enqueue hands entries to the journal worker and returns those that did not
// fit in the buffer. It runs under the ledger lock.
func (l *Ledger) enqueue(entries []*journal.Entry) []*journal.Entry {
	for i, e := range entries {
		select {
		case l.journalBuffer <- e:
		default:
			return entries[i:]
		}
	}
	return nil
}

// writeOverflow stores entries the buffer could not take so nothing settled
// goes unrecorded. Callers must not hold the ledger lock: flush hooks may
// query the ledger.
func (l *Ledger) writeOverflow(ctx context.Context, entries []*journal.Entry) {
	if len(entries) == 0 {
		return
	}
	l.logger.Warn("journal buffer full, writing synchronously",
		"error", ErrJournalBufferFull,
		"pending", len(entries),
	)
	l.flushJournalBatch(context.WithoutCancel(ctx), entries)
}

// Flush blocks until every entry queued so far has reached the store.
func (l *Ledger) Flush(ctx context.Context) error {
	if l.reentrant(ctx) {
		return ErrReentrantCall
	}

	done := make(chan struct{})
	select {
	case l.flushReq <- done:
	case <-l.stopChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// journalFlushWorker batches journal entries into the store.
func (l *Ledger) journalFlushWorker(ctx context.Context) {
	defer l.wg.Done()

	batch := make([]*journal.Entry, 0, l.journalBatchSize)
	ticker := time.NewTicker(l.journalFlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			l.flushJournalBatch(ctx, batch)
			batch = make([]*journal.Entry, 0, l.journalBatchSize)
		}
	}

	// drain moves everything already queued into the batch.
	drain := func() {
		for {
			select {
			case e := <-l.journalBuffer:
				batch = append(batch, e)
			default:
				return
			}
		}
	}

	for {
		select {
		case <-l.stopChan:
			drain()
			flush()
			return

		case done := <-l.flushReq:
			drain()
			flush()
			close(done)

		case e := <-l.journalBuffer:
			batch = append(batch, e)
			if len(batch) >= l.journalBatchSize {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}

func (l *Ledger) flushJournalBatch(ctx context.Context, batch []*journal.Entry) {
	start := time.Now()

	if err := l.store.AppendEntries(ctx, batch); err != nil {
		l.logger.Error("failed to flush journal batch",
			"error", err,
			"batch_size", len(batch),
		)
		return
	}

	elapsed := time.Since(start)
	l.plugins.EmitJournalFlushed(ctx, len(batch), elapsed)

	l.logger.Debug("flushed journal batch",
		"batch_size", len(batch),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}
