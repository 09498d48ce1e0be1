package spatial

import (
	"context"
	"errors"
	"fmt"
	"fuel-route-service/internal/ports"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrIndexNotBuilt is returned by queries issued before the first successful build.
var ErrIndexNotBuilt = errors.New("station index not built")

// RebuildObserver receives the outcome of every rebuild.
type RebuildObserver interface {
	ObserveIndexRebuild(stations int, dur time.Duration, err error)
}

// Index publishes station snapshots built from the catalog.
//
// Readers always see a complete snapshot: Rebuild constructs a new
// snapshot off to the side and swaps the published pointer only after
// construction finishes. Queries already holding the previous snapshot
// complete against it. Rebuilds are serialized.
type Index struct {
	source   ports.StationRepository
	logger   *zap.Logger
	observer RebuildObserver

	current   atomic.Pointer[Snapshot]
	rebuildMu sync.Mutex
	builtAt   atomic.Int64
}

func NewIndex(source ports.StationRepository, logger *zap.Logger, observer RebuildObserver) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		source:   source,
		logger:   logger,
		observer: observer,
	}
}

// IsReady reports whether a snapshot has been published.
func (x *Index) IsReady() bool {
	return x.current.Load() != nil
}

// BuiltAt returns when the live snapshot was published, or the zero time.
func (x *Index) BuiltAt() time.Time {
	ns := x.builtAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Current returns the live snapshot.
func (x *Index) Current() (*Snapshot, error) {
	snap := x.current.Load()
	if snap == nil {
		return nil, ErrIndexNotBuilt
	}
	return snap, nil
}

// QueryWithinRadius queries the live snapshot.
func (x *Index) QueryWithinRadius(lat, lon, radiusDeg float64) ([]int64, error) {
	snap, err := x.Current()
	if err != nil {
		return nil, err
	}
	return snap.QueryWithinRadius(lat, lon, radiusDeg), nil
}

// Publish swaps in a snapshot built elsewhere.
func (x *Index) Publish(snap *Snapshot) {
	if snap == nil {
		return
	}
	x.current.Store(snap)
	x.builtAt.Store(time.Now().UnixNano())
}

// Rebuild loads every located station from the catalog, builds a new
// snapshot and publishes it. On failure the previous snapshot stays live.
func (x *Index) Rebuild(ctx context.Context) (*Snapshot, error) {
	x.rebuildMu.Lock()
	defer x.rebuildMu.Unlock()

	return x.rebuildLocked(ctx)
}

// EnsureBuilt returns the live snapshot, building one first if none exists.
func (x *Index) EnsureBuilt(ctx context.Context) (*Snapshot, error) {
	if snap := x.current.Load(); snap != nil {
		return snap, nil
	}

	x.rebuildMu.Lock()
	defer x.rebuildMu.Unlock()

	// Another caller may have finished a build while we waited.
	if snap := x.current.Load(); snap != nil {
		return snap, nil
	}
	return x.rebuildLocked(ctx)
}

func (x *Index) rebuildLocked(ctx context.Context) (_ *Snapshot, err error) {
	start := time.Now()
	points := 0
	defer func() {
		if x.observer != nil {
			x.observer.ObserveIndexRebuild(points, time.Since(start), err)
		}
	}()

	if x.source == nil {
		return nil, errors.New("rebuild station index: source is nil")
	}

	stations, err := x.source.ListLocatedStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild station index: list located stations: %w", err)
	}

	pts := make([]Point, 0, len(stations))
	for _, s := range stations {
		if !s.HasLocation() {
			continue
		}
		pts = append(pts, Point{ID: s.ID, Lat: s.Location.Lat, Lon: s.Location.Lon})
	}
	points = len(pts)

	snap := Build(pts)
	x.Publish(snap)

	x.logger.Info("station index published",
		zap.Int("stations", snap.Len()),
		zap.Duration("dur", time.Since(start)),
	)

	return snap, nil
}

// RunRefresher rebuilds the index every interval until ctx is done.
// A failed rebuild is logged and the previous snapshot keeps serving.
func (x *Index) RunRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := x.Rebuild(ctx); err != nil {
				x.logger.Warn("station index refresh failed", zap.Error(err))
			}
		}
	}
}
