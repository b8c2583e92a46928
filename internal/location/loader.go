package location

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

type Source interface {
	GetLocations(ctx context.Context) (json.RawMessage, error)
}

// Loader fetches the table once and serves it from memory afterwards.
// Failed fetches are not cached.
type Loader struct {
	source Source
	logger *slog.Logger
	sfg    singleflight.Group

	mu    sync.RWMutex
	table *Table
}

func NewLoader(source Source, logger *slog.Logger) *Loader {
	return &Loader{source: source, logger: logger}
}

func (l *Loader) Table(ctx context.Context) (*Table, error) {
	l.mu.RLock()
	t := l.table
	l.mu.RUnlock()
	if t != nil {
		return t, nil
	}

	v, err, _ := l.sfg.Do("table", func() (interface{}, error) {
		raw, err := l.source.GetLocations(ctx)
		if err != nil {
			return nil, err
		}
		table, err := ParseTable(raw)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.table = table
		l.mu.Unlock()
		return table, nil
	})
	if err != nil {
		l.logger.WarnContext(ctx, "location table fetch failed", "error", err)
		return nil, err
	}
	return v.(*Table), nil
}
