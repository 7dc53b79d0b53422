package history

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/rkshawon/interprep/internal/logging"
	"github.com/rkshawon/interprep/internal/shared/id"
	"github.com/rkshawon/interprep/internal/shared/jsonx"
)

const (
	recordBuffer  = 1024
	flushSize     = 64
	flushInterval = time.Second

	// pruneEvery is how many inserts pass between automatic prunes
	// when a record cap is configured.
	pruneEvery = 256

	// largeExportCount is the record count past which exports switch
	// to the large-payload JSON codec.
	largeExportCount = 100
)

// Manager records runs asynchronously and serves history queries.
// Writes go through a buffered channel and a single flush goroutine, so
// a recorded run becomes visible to queries within about a second.
type Manager struct {
	store      *Store
	ch         chan *Record
	done       chan struct{}
	once       sync.Once
	maxRecords int
	sincePrune int // touched only by the flush goroutine
	logger     *logging.Logger
}

// NewManager creates a history manager over the store and starts its
// flush goroutine. maxRecords caps the table size; 0 disables the cap.
func NewManager(store *Store, maxRecords int, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		store:      store,
		ch:         make(chan *Record, recordBuffer),
		done:       make(chan struct{}),
		maxRecords: maxRecords,
		logger:     logger.Named("history"),
	}
	go m.flushLoop()
	return m
}

// RecordRun queues one evaluation for persistence and returns its run
// ID. Non-blocking; when the buffer is full the record is dropped so
// evaluation latency never depends on the database.
func (m *Manager) RecordRun(sessionID *string, source, output string, ok bool, duration time.Duration) string {
	runID := id.NewRunID().String()
	m.RecordAs(runID, sessionID, source, output, ok, duration)
	return runID
}

// RecordAs queues one evaluation under a caller-minted run ID, for
// surfaces that announce the ID before the run settles.
func (m *Manager) RecordAs(runID string, sessionID *string, source, output string, ok bool, duration time.Duration) {
	r := &Record{
		ID:         runID,
		SessionID:  sessionID,
		Source:     source,
		Output:     output,
		OK:         ok,
		DurationUS: duration.Microseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	select {
	case m.ch <- r:
	default:
		m.logger.Warn("history buffer full, dropping record", zap.String("run_id", r.ID))
	}
}

// Get returns one record by ID.
func (m *Manager) Get(ctx context.Context, recordID string) (*Record, error) {
	return m.store.Get(ctx, recordID)
}

// List returns records newest first.
func (m *Manager) List(ctx context.Context, f Filter) ([]*Record, error) {
	return m.store.List(ctx, f)
}

// Count returns the number of stored records.
func (m *Manager) Count(ctx context.Context) (int64, error) {
	return m.store.Count(ctx)
}

// Prune removes old records, keeping at most keepLast and nothing older
// than maxAge. Zero values skip the corresponding pass.
func (m *Manager) Prune(ctx context.Context, keepLast int, maxAge time.Duration) (int64, error) {
	removed, err := m.store.Prune(ctx, keepLast, maxAge)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		m.logger.Info("history pruned",
			zap.Int64("removed", removed),
			zap.Int("keep_last", keepLast),
			zap.Duration("max_age", maxAge))
	}
	return removed, nil
}

// Export streams the full history as gzip-compressed JSON.
func (m *Manager) Export(ctx context.Context, w io.Writer) error {
	records, err := m.store.All(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	var data []byte
	if len(records) > largeExportCount {
		data, err = jsonx.MarshalLarge(records)
	} else {
		data, err = jsonx.Marshal(records)
	}
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	gz := gzip.NewWriter(w)
	if _, err := gz.Write(data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return gz.Close()
}

// Close drains queued records and stops the flush goroutine. It does
// not close the store.
func (m *Manager) Close() error {
	m.once.Do(func() {
		close(m.ch)
		<-m.done
	})
	return nil
}

func (m *Manager) flushLoop() {
	defer close(m.done)

	batch := make([]*Record, 0, flushSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-m.ch:
			if !ok {
				m.flushBatch(batch)
				m.enforceCap(true)
				return
			}
			batch = append(batch, r)
			if len(batch) >= flushSize {
				m.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				m.flushBatch(batch)
				batch = batch[:0]
			}
			m.enforceCap(false)
		}
	}
}

func (m *Manager) flushBatch(batch []*Record) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.store.InsertBatch(ctx, batch); err != nil {
		m.logger.Error("history flush failed",
			zap.Int("batch", len(batch)),
			zap.Error(err))
		return
	}
	m.sincePrune += len(batch)
}

// enforceCap prunes down to maxRecords once enough inserts accumulate,
// or unconditionally on shutdown so a capped table never outlives its
// bound.
func (m *Manager) enforceCap(force bool) {
	if m.maxRecords <= 0 {
		return
	}
	if !force && m.sincePrune < pruneEvery {
		return
	}
	m.sincePrune = 0

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	removed, err := m.store.Prune(ctx, m.maxRecords, 0)
	if err != nil {
		m.logger.Warn("history cap prune failed", zap.Error(err))
		return
	}
	if removed > 0 {
		m.logger.Debug("history capped",
			zap.Int64("removed", removed),
			zap.Int("max_records", m.maxRecords))
	}
}
