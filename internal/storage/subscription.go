package storage

import (
	"context"
	"sync"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
)

// loaderFunc produces a fresh full snapshot of the complaints collection.
type loaderFunc func(ctx context.Context) (models.Snapshot, error)

// feed is the delivery half shared by every backend: it owns the events
// channel, reloads the snapshot whenever a change signal arrives and stops on Close.
type feed struct {
	events  chan models.ComplaintEvent
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	started bool
	release func() error
}

func newFeed(parent context.Context, release func() error) *feed {
	ctx, cancel := context.WithCancel(parent)
	return &feed{
		events:  make(chan models.ComplaintEvent, config.ScreenEventBuffer),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		release: release,
	}
}

// run delivers an initial snapshot and then one per value on changes. A nil
// error from errs is ignored; a non-nil one is forwarded as an error event.
func (f *feed) run(load loaderFunc, changes <-chan struct{}, errs <-chan error) {
	f.started = true
	go func() {
		defer close(f.done)
		defer close(f.events)

		f.reload(load)
		for {
			select {
			case <-f.ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				f.reload(load)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				if err != nil {
					f.emit(models.ComplaintEvent{Err: err})
				}
			}
		}
	}()
}

func (f *feed) reload(load loaderFunc) {
	snap, err := load(f.ctx)
	if err != nil {
		if f.ctx.Err() != nil {
			return
		}
		f.emit(models.ComplaintEvent{Err: err})
		return
	}
	f.emit(models.ComplaintEvent{Snapshot: snap})
}

func (f *feed) emit(ev models.ComplaintEvent) {
	select {
	case f.events <- ev:
	case <-f.ctx.Done():
	}
}

func (f *feed) Events() <-chan models.ComplaintEvent { return f.events }

func (f *feed) Close() error {
	var err error
	f.once.Do(func() {
		f.cancel()
		if f.release != nil {
			err = f.release()
		}
		if f.started {
			<-f.done
		}
	})
	return err
}
