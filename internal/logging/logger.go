package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	SchemaVersion = 1
	FileName      = "pingcheck.jsonl"
)

// Logger appends JSON records, one per line, to a size-rotated file.
type Logger struct {
	mu     sync.Mutex
	writer io.WriteCloser
	seq    uint64
	now    func() time.Time

	toolName    string
	toolVersion string
	hostID      string
}

type Config struct {
	Dir         string
	MaxMB       int
	MaxFiles    int
	ToolName    string
	ToolVersion string
	HostID      string
}

// Emittable is any record embedding BaseEvent.
type Emittable interface {
	Base() *BaseEvent
}

func New(cfg Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, FileName),
		MaxSize:    cfg.MaxMB,
		MaxBackups: cfg.MaxFiles,
		Compress:   false,
	}

	return &Logger{
		writer:      lj,
		now:         time.Now,
		toolName:    cfg.ToolName,
		toolVersion: cfg.ToolVersion,
		hostID:      cfg.HostID,
	}, nil
}

func (l *Logger) Close() error {
	if l == nil || l.writer == nil {
		return nil
	}

	return l.writer.Close()
}

// Emit stamps the base fields and writes the record. Sequence numbers are
// assigned under the lock so they match file order.
func (l *Logger) Emit(record Emittable) error {
	if l == nil || l.writer == nil {
		return fmt.Errorf("logger not initialized")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	ts := l.now().UTC()

	base := record.Base()
	base.TSUTC = ts.Format(time.RFC3339Nano)
	base.TSUnixMS = ts.UnixMilli()
	base.Seq = l.seq
	base.SchemaVersion = SchemaVersion
	base.ToolName = l.toolName
	base.ToolVersion = l.toolVersion
	base.HostID = l.hostID
	base.ClockSource = "system"

	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal log record: %w", err)
	}

	b = append(b, '\n')
	_, err = l.writer.Write(b)
	return err
}
