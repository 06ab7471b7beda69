package mirror

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Putter uploads one local file.
type Putter interface {
	PutFile(ctx context.Context, key, localPath string) error
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DroppedTotal  uint64 `json:"dropped_total"`
	UploadedTotal uint64 `json:"uploaded_total"`
	FailedTotal   uint64 `json:"failed_total"`
}

type Options struct {
	// Prefix is prepended to every object key.
	Prefix string

	Workers  int
	Queue    int
	Attempts int

	// Backoff is the base retry delay; attempt n waits n*n*Backoff.
	Backoff time.Duration

	Logger *log.Logger
}

// Mirror uploads files under a root directory, keyed by their path relative
// to it. Enqueue never blocks; files are dropped when the queue is full or
// the mirror is closed.
type Mirror struct {
	put  Putter
	root string
	opts Options

	mu     sync.RWMutex
	closed bool
	jobs   chan string
	wg     sync.WaitGroup
	once   sync.Once

	dropped  atomic.Uint64
	uploaded atomic.Uint64
	failed   atomic.Uint64
}

func New(put Putter, root string, opts Options) *Mirror {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Queue <= 0 {
		opts.Queue = 64
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 4
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	opts.Prefix = strings.Trim(strings.ReplaceAll(opts.Prefix, "\\", "/"), "/")
	m := &Mirror{
		put:  put,
		root: root,
		opts: opts,
		jobs: make(chan string, opts.Queue),
	}
	for i := 0; i < opts.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

func (m *Mirror) Enqueue(localPath string) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}
	select {
	case m.jobs <- localPath:
		return true
	default:
		n := m.dropped.Add(1)
		m.logf("mirror: drop %s: queue full (dropped_total=%d)", localPath, n)
		return false
	}
}

// Close drains queued uploads and waits for the workers.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.jobs)
		m.mu.Unlock()
		m.wg.Wait()
	})
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(m.jobs),
		QueueCapacity: cap(m.jobs),
		DroppedTotal:  m.dropped.Load(),
		UploadedTotal: m.uploaded.Load(),
		FailedTotal:   m.failed.Load(),
	}
}

func (m *Mirror) worker() {
	defer m.wg.Done()
	for p := range m.jobs {
		key, err := m.Key(p)
		if err != nil {
			m.failed.Add(1)
			m.logf("mirror: skip %s: %v", p, err)
			continue
		}
		if err := m.upload(key, p); err != nil {
			m.failed.Add(1)
			m.logf("mirror: upload %s: %v", key, err)
			continue
		}
		m.uploaded.Add(1)
	}
}

func (m *Mirror) upload(key, localPath string) error {
	var err error
	for attempt := 1; attempt <= m.opts.Attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = m.put.PutFile(ctx, key, localPath)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < m.opts.Attempts {
			time.Sleep(time.Duration(attempt*attempt) * m.opts.Backoff)
		}
	}
	return err
}

// Key maps a local file under the root to its object key.
func (m *Mirror) Key(localPath string) (string, error) {
	absRoot, err := filepath.Abs(m.root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", abs, absRoot)
	}
	if m.opts.Prefix != "" {
		rel = path.Join(m.opts.Prefix, rel)
	}
	return rel, nil
}

func (m *Mirror) logf(format string, args ...any) {
	if m.opts.Logger != nil {
		m.opts.Logger.Printf(format, args...)
	}
}
