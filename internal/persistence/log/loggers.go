package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"baseplan.ai/internal/sim/planning/reconcile"
)

const defaultRotateLayout = "2006-01-02-15"

type LoggerOptions struct {
	// RotateLayout is a time layout; a new segment starts whenever the
	// formatted UTC time changes. Defaults to hourly.
	RotateLayout string

	// OnClose receives the path of every finished segment.
	OnClose func(path string)

	now func() time.Time
}

// JSONLZstdWriter appends JSON lines to zstd segments named
// <prefix>-<segment>.jsonl.zst under dir.
type JSONLZstdWriter struct {
	dir    string
	prefix string
	opts   LoggerOptions

	mu     sync.Mutex
	seg    string
	path   string
	f      *os.File
	enc    *zstd.Encoder
	buf    *bufio.Writer
	closed bool
}

func NewJSONLZstdWriter(dir, prefix string, opts LoggerOptions) *JSONLZstdWriter {
	if opts.RotateLayout == "" {
		opts.RotateLayout = defaultRotateLayout
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	return &JSONLZstdWriter{dir: dir, prefix: prefix, opts: opts}
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("log: %s writer closed", w.prefix)
	}
	if seg := w.opts.now().UTC().Format(w.opts.RotateLayout); seg != w.seg || w.f == nil {
		if err := w.openLocked(seg); err != nil {
			return err
		}
	}
	b = append(b, '\n')
	if _, err := w.buf.Write(b); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Close finishes the current segment. Later writes fail.
func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.finishLocked()
}

func (w *JSONLZstdWriter) openLocked(seg string) error {
	if err := w.finishLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	p := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, seg))
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.seg, w.path = seg, p
	w.f, w.enc = f, enc
	w.buf = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (w *JSONLZstdWriter) finishLocked() error {
	if w.f == nil {
		return nil
	}
	err := w.buf.Flush()
	if cerr := w.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	done := w.path
	w.f, w.enc, w.buf, w.path = nil, nil, nil, ""
	if w.opts.OnClose != nil {
		w.opts.OnClose(done)
	}
	return err
}

// ReportLogger writes one line per reconcile run.
type ReportLogger struct{ w *JSONLZstdWriter }

func NewReportLogger(dataDir string, opts LoggerOptions) *ReportLogger {
	return &ReportLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "reports"), "reports", opts)}
}

func (l *ReportLogger) WriteReport(r reconcile.Report) error { return l.w.Write(r) }
func (l *ReportLogger) Close() error                         { return l.w.Close() }

// AuditEntry records an operator action against a base.
type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	BaseID string `json:"base_id"`
	Action string `json:"action"`
	Detail string `json:"detail,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

type AuditLogger struct{ w *JSONLZstdWriter }

func NewAuditLogger(dataDir string, opts LoggerOptions) *AuditLogger {
	return &AuditLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "audit"), "audit", opts)}
}

func (l *AuditLogger) WriteAudit(v AuditEntry) error { return l.w.Write(v) }
func (l *AuditLogger) Close() error                  { return l.w.Close() }
