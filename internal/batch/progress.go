package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives progress reports while a batch runs. Calls are
// made from the collecting goroutine only.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(done, total int)
	OnError(file string, err error)
	OnComplete(elapsed time.Duration)
}

// NoOpProgress discards all reports.
type NoOpProgress struct{}

func (NoOpProgress) OnStart(int)              {}
func (NoOpProgress) OnProgress(int, int)      {}
func (NoOpProgress) OnError(string, error)    {}
func (NoOpProgress) OnComplete(time.Duration) {}

// ConsoleProgress draws a single-line progress bar.
type ConsoleProgress struct {
	mu             sync.Mutex
	w              io.Writer
	prefix         string
	width          int
	updateInterval time.Duration
	lastUpdate     time.Time
	now            func() time.Time
}

// NewConsoleProgress creates a progress bar writing to w.
func NewConsoleProgress(w io.Writer, prefix string) *ConsoleProgress {
	return &ConsoleProgress{w: w, prefix: prefix, width: 40, updateInterval: 100 * time.Millisecond, now: time.Now}
}

// WithUpdateInterval limits how often the bar is redrawn.
func (c *ConsoleProgress) WithUpdateInterval(d time.Duration) *ConsoleProgress {
	c.updateInterval = d
	return c
}

func (c *ConsoleProgress) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.w, "%s0/%d\n", c.prefix, total)
}

func (c *ConsoleProgress) OnProgress(done, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if total <= 0 {
		return
	}
	now := c.now()
	if done < total && now.Sub(c.lastUpdate) < c.updateInterval {
		return
	}
	c.lastUpdate = now

	filled := c.width * done / total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)
	_, _ = fmt.Fprintf(c.w, "\r%s[%s] %d/%d (%.1f%%)", c.prefix, bar, done, total, 100*float64(done)/float64(total))
}

func (c *ConsoleProgress) OnError(file string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%s%s: %v\n", c.prefix, file, err)
}

func (c *ConsoleProgress) OnComplete(elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sCompleted in %v\n", c.prefix, elapsed.Round(time.Millisecond))
}

// LogProgress reports through slog every interval files.
type LogProgress struct {
	logger   *slog.Logger
	level    slog.Level
	interval int
	last     int
}

// NewLogProgress creates a slog reporter. A nil logger uses slog.Default.
func NewLogProgress(logger *slog.Logger, level slog.Level, interval int) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgress{logger: logger, level: level, interval: max(1, interval)}
}

func (l *LogProgress) OnStart(total int) {
	l.last = 0
	l.logger.Log(context.Background(), l.level, "Batch started", "files", total)
}

func (l *LogProgress) OnProgress(done, total int) {
	if done-l.last < l.interval && done != total {
		return
	}
	l.last = done
	l.logger.Log(context.Background(), l.level, "Batch progress", "done", done, "total", total)
}

func (l *LogProgress) OnError(file string, err error) {
	l.logger.Warn("Batch file failed", "file", file, "error", err)
}

func (l *LogProgress) OnComplete(elapsed time.Duration) {
	l.logger.Log(context.Background(), l.level, "Batch completed", "duration", elapsed)
}
