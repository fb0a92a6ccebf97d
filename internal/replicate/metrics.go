package replicate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"hardcpy/internal/hc"
)

// Metrics collects progress counters while a phase runs.
type Metrics interface {
	AddFilesDiscovered(n int64)
	AddFilesCopied(n int64)
	AddBytesCopied(n int64)
	AddDirsCreated(n int64)
	AddDirsSkipped(n int64)
	AddDrains(n int64)
	LogSummary(msg string)

	StartProgress(msg string, interval time.Duration)
	StopProgress()
}

// EngineMetrics is the atomic-counter implementation of Metrics. Progress is
// logged through the provided logger.
type EngineMetrics struct {
	FilesDiscovered atomic.Int64
	FilesCopied     atomic.Int64
	BytesCopied     atomic.Int64
	DirsCreated     atomic.Int64
	DirsSkipped     atomic.Int64
	Drains          atomic.Int64

	logger hc.Logger

	mu        sync.Mutex
	stopChan  chan struct{}
	done      chan struct{}
	startTime time.Time
}

func NewEngineMetrics(logger hc.Logger) *EngineMetrics {
	return &EngineMetrics{logger: logger}
}

func (m *EngineMetrics) AddFilesDiscovered(n int64) { m.FilesDiscovered.Add(n) }
func (m *EngineMetrics) AddFilesCopied(n int64)     { m.FilesCopied.Add(n) }
func (m *EngineMetrics) AddBytesCopied(n int64)     { m.BytesCopied.Add(n) }
func (m *EngineMetrics) AddDirsCreated(n int64)     { m.DirsCreated.Add(n) }
func (m *EngineMetrics) AddDirsSkipped(n int64)     { m.DirsSkipped.Add(n) }
func (m *EngineMetrics) AddDrains(n int64)          { m.Drains.Add(n) }

// StartProgress logs a summary every interval until StopProgress is called.
// A running ticker is stopped first.
func (m *EngineMetrics) StartProgress(msg string, interval time.Duration) {
	m.StopProgress()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.startTime = time.Now()
	stop := make(chan struct{})
	done := make(chan struct{})
	m.stopChan, m.done = stop, done

	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.LogSummary(msg)
			case <-stop:
				return
			}
		}
	}()
}

func (m *EngineMetrics) StopProgress() {
	m.mu.Lock()
	stop, done := m.stopChan, m.done
	m.stopChan, m.done = nil, nil
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (m *EngineMetrics) LogSummary(msg string) {
	m.mu.Lock()
	start := m.startTime
	m.mu.Unlock()

	var elapsed time.Duration
	if !start.IsZero() {
		elapsed = time.Since(start)
	}
	m.logger.Info(msg,
		"files_discovered", humanize.Comma(m.FilesDiscovered.Load()),
		"files_copied", humanize.Comma(m.FilesCopied.Load()),
		"bytes_copied", humanize.IBytes(uint64(m.BytesCopied.Load())),
		"dirs_created", m.DirsCreated.Load(),
		"dirs_skipped", m.DirsSkipped.Load(),
		"drains", m.Drains.Load(),
		"duration", elapsed.Round(time.Millisecond),
	)
}

// NoopMetrics discards all counters.
type NoopMetrics struct{}

func (*NoopMetrics) AddFilesDiscovered(int64)            {}
func (*NoopMetrics) AddFilesCopied(int64)                {}
func (*NoopMetrics) AddBytesCopied(int64)                {}
func (*NoopMetrics) AddDirsCreated(int64)                {}
func (*NoopMetrics) AddDirsSkipped(int64)                {}
func (*NoopMetrics) AddDrains(int64)                     {}
func (*NoopMetrics) LogSummary(string)                   {}
func (*NoopMetrics) StartProgress(string, time.Duration) {}
func (*NoopMetrics) StopProgress()                       {}

var _ Metrics = (*EngineMetrics)(nil)
var _ Metrics = (*NoopMetrics)(nil)
