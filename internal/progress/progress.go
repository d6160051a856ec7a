// Package progress renders tqdm-style progress bars for loops and
// downloads.
//
//	desc:  45%|████████      | 27/60 [00:03<00:04, 8.1it/s, loss=0.31]
//
// Bars redraw in place on their writer, at most once per MinInterval, and
// are safe for concurrent use.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Option configures a Bar.
type Option func(*Bar)

// WithDescription sets the label shown before the bar.
func WithDescription(desc string) Option {
	return func(b *Bar) { b.desc = desc }
}

// WithWriter sets the output (default: os.Stderr).
func WithWriter(w io.Writer) Option {
	return func(b *Bar) { b.out = w }
}

// WithBytes formats counts and rates as byte sizes.
func WithBytes() Option {
	return func(b *Bar) { b.bytes = true }
}

// WithWidth sets the width of the bar graphic in cells (default: 30).
func WithWidth(width int) Option {
	return func(b *Bar) { b.graphic.Width = width }
}

// WithMinInterval sets the minimum time between redraws (default: 100ms).
func WithMinInterval(d time.Duration) Option {
	return func(b *Bar) { b.minInterval = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bar) { b.now = now }
}

// Disabled turns off all output while keeping the counters.
func Disabled() Option {
	return func(b *Bar) { b.out = io.Discard }
}

type postfix struct {
	key   string
	value string
}

// Bar is a progress bar over a known or unknown total.
type Bar struct {
	mu          sync.Mutex
	total       int64 // 0 when unknown
	n           int64
	desc        string
	postfix     []postfix
	bytes       bool
	out         io.Writer
	graphic     progress.Model
	start       time.Time
	lastDraw    time.Time
	minInterval time.Duration
	now         func() time.Time
	closed      bool
}

var descStyle = lipgloss.NewStyle().Bold(true)

// New creates a bar for total items. A total of zero means the total is
// unknown and only the count and rate are shown.
func New(total int64, opts ...Option) *Bar {
	b := &Bar{
		total:       total,
		out:         os.Stderr,
		graphic:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(30)),
		minInterval: 100 * time.Millisecond,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.start = b.now()
	return b
}

// Add advances the bar by n and redraws when the interval has elapsed.
func (b *Bar) Add(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n += n
	if now := b.now(); now.Sub(b.lastDraw) >= b.minInterval || (b.total > 0 && b.n >= b.total) {
		b.draw(now)
	}
}

// N returns the current count.
func (b *Bar) N() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// SetTotal changes the total, for streams whose size is learned late.
func (b *Bar) SetTotal(total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total = total
}

// SetDescription replaces the label.
func (b *Bar) SetDescription(desc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.desc = desc
}

// SetPostfix sets key=value, shown after the rate. Keys keep the order in
// which they were first set. Floats are shown with 4 significant digits.
func (b *Bar) SetPostfix(key string, value any) {
	var s string
	switch v := value.(type) {
	case float32:
		s = fmt.Sprintf("%.4g", v)
	case float64:
		s = fmt.Sprintf("%.4g", v)
	default:
		s = fmt.Sprint(v)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.postfix {
		if b.postfix[i].key == key {
			b.postfix[i].value = s
			return
		}
	}
	b.postfix = append(b.postfix, postfix{key: key, value: s})
}

// Close draws the final state and ends the line. Calling Close twice is a
// no-op.
func (b *Bar) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.draw(b.now())
	_, err := io.WriteString(b.out, "\n")
	return err
}

// String renders the current line without drawing it.
func (b *Bar) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.render(b.now())
}

func (b *Bar) draw(now time.Time) {
	b.lastDraw = now
	// Write errors are ignored: a broken terminal must not stop the work.
	_, _ = fmt.Fprintf(b.out, "\r\033[K%s", b.render(now))
}

func (b *Bar) render(now time.Time) string {
	elapsed := now.Sub(b.start)
	var sb strings.Builder
	if b.desc != "" {
		sb.WriteString(descStyle.Render(b.desc))
		sb.WriteString(": ")
	}

	rate := 0.0
	if elapsed > 0 {
		rate = float64(b.n) / elapsed.Seconds()
	}

	stats := []string{formatDuration(elapsed)}
	if b.total > 0 {
		frac := min(float64(b.n)/float64(b.total), 1)
		fmt.Fprintf(&sb, "%3.0f%%|%s| %s/%s", frac*100, b.graphic.ViewAs(frac), b.count(b.n), b.count(b.total))
		remaining := "?"
		if rate > 0 {
			left := float64(b.total-b.n) / rate
			remaining = formatDuration(time.Duration(max(left, 0) * float64(time.Second)))
		}
		stats[0] += "<" + remaining
	} else {
		sb.WriteString(b.count(b.n))
		if !b.bytes {
			sb.WriteString("it")
		}
	}

	stats = append(stats, b.formatRate(rate))
	for _, p := range b.postfix {
		stats = append(stats, p.key+"="+p.value)
	}
	sb.WriteString(" [" + strings.Join(stats, ", ") + "]")
	return sb.String()
}

func (b *Bar) count(n int64) string {
	if b.bytes {
		return humanize.Bytes(uint64(max(n, 0)))
	}
	return fmt.Sprint(n)
}

func (b *Bar) formatRate(rate float64) string {
	if b.bytes {
		return humanize.Bytes(uint64(rate)) + "/s"
	}
	if rate > 0 && rate < 1 {
		return fmt.Sprintf("%.2fs/it", 1/rate)
	}
	return fmt.Sprintf("%.1fit/s", rate)
}

func formatDuration(d time.Duration) string {
	s := int(d.Round(time.Second).Seconds())
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s%3600/60, s%60)
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
