package authkit

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// auditDispatcher is the asynchronous activity log pipeline. Entries are
// persisted through the durable store and then mirrored to the optional sink.
// Persistence is best-effort: a write failure is logged and counted, never
// propagated to the flow that produced the entry.
type auditDispatcher struct {
	cfg       AuditConfig
	store     ActivityLogStore
	sink      AuditSink
	ch        chan ActivityLogEntry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, store ActivityLogStore, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	d := &auditDispatcher{
		cfg:   cfg,
		store: store,
		sink:  sink,
		ch:    make(chan ActivityLogEntry, cfg.BufferSize),
		done:  make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case entry := <-d.ch:
			d.persist(entry)
		case <-d.done:
			for {
				select {
				case entry := <-d.ch:
					d.persist(entry)
				default:
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) persist(entry ActivityLogEntry) {
	ctx := context.Background()
	if d.store != nil {
		if err := d.store.Insert(ctx, entry); err != nil {
			d.dropped.Add(1)
			log.Printf("authkit: activity log write failed (action=%s user=%s): %v", entry.Action, entry.UserID, err)
		}
	}
	if d.sink != nil {
		d.sink.Emit(ctx, entry)
	}
}

// Emit queues an entry. When DropIfFull is set a full buffer drops the entry
// and bumps the counter instead of blocking the caller.
func (d *auditDispatcher) Emit(ctx context.Context, entry ActivityLogEntry) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- entry:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- entry:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close stops the dispatcher after draining queued entries.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports dropped plus failed-to-persist entries.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
