// Package watcher polls the maintenance flag and keeps the latest value in memory.
package watcher

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/danilovkiri/dk-go-refill/internal/storage"
	"github.com/rs/zerolog"
)

// Watcher defines attributes of a struct available to its methods.
type Watcher struct {
	source   storage.TechRepository
	interval time.Duration
	log      *zerolog.Logger
	tech     int32
}

// InitWatcher initializes a maintenance flag watcher.
func InitWatcher(source storage.TechRepository, interval time.Duration, log *zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{source: source, interval: interval, log: log}
}

// Tech reports the last polled maintenance flag.
func (w *Watcher) Tech() bool {
	return atomic.LoadInt32(&w.tech) == 1
}

// ListenAndPoll polls the flag until ctx is done. The first poll happens immediately.
func (w *Watcher) ListenAndPoll(ctx context.Context) error {
	w.log.Info().Msg("started polling maintenance flag")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.poll(ctx)
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopped polling maintenance flag")
			return nil
		case <-ticker.C:
		}
	}
}

// poll reads the flag once. A failed read counts as maintenance being off.
func (w *Watcher) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()
	tech, err := w.source.GetTechStatus(pollCtx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("maintenance flag read failed")
		}
		tech = false
	}
	var v int32
	if tech {
		v = 1
	}
	if old := atomic.SwapInt32(&w.tech, v); old != v {
		w.log.Info().Bool("tech", tech).Msg("maintenance flag changed")
	}
}
