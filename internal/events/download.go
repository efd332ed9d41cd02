package events

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cloudeng.io/logging/ctxlog"
)

const progressBarWidth = 40

type progressMsg struct {
	received int64
	total    int64
	rate     float64
}

type doneMsg struct {
	dest  string
	size  int64
	count int
	span  [2]string
	err   error
}

// Fetch downloads url to dest, writing to a temporary file first so a
// failed transfer never clobbers an existing cache. Every chunk written is
// reported to onProgress, which may be nil. It returns the size and the
// media type of the response.
func Fetch(ctx context.Context, url, dest string, onProgress func(received, total int64)) (int64, string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, "", fmt.Errorf("failed to create directory: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("failed to start download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, "", fmt.Errorf("download %s: HTTP %s", url, resp.Status)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".events-*")
	if err != nil {
		return 0, "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var received int64
	body := io.TeeReader(resp.Body, writerFunc(func(p []byte) (int, error) {
		n := atomic.AddInt64(&received, int64(len(p)))
		if onProgress != nil {
			onProgress(n, resp.ContentLength)
		}
		return len(p), nil
	}))
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return 0, "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, "", fmt.Errorf("failed to install %s: %w", dest, err)
	}
	ctxlog.Logger(ctx).Info("downloaded events", "url", url, "dest", dest, "bytes", received, "type", mediaType)
	return atomic.LoadInt64(&received), mediaType, nil
}

// fetchCache downloads url into dir as the events cache, named after the
// downloaded format.
func fetchCache(ctx context.Context, url, dir string, onProgress func(received, total int64)) (string, int64, error) {
	staging := filepath.Join(dir, ".events.partial")
	size, mediaType, err := Fetch(ctx, url, staging, onProgress)
	if err != nil {
		return "", 0, err
	}
	dest, err := installCache(staging, dir, cacheExt(url, mediaType))
	if err != nil {
		os.Remove(staging)
		return "", 0, err
	}
	return dest, size, nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

type downloadModel struct {
	ctx      context.Context
	url      string
	dir      string
	started  time.Time
	progress progressMsg
	result   *doneMsg
	updates  chan progressMsg
	done     chan doneMsg
}

func newDownloadModel(ctx context.Context, url, dir string) *downloadModel {
	return &downloadModel{
		ctx:     ctx,
		url:     url,
		dir:     dir,
		started: time.Now(),
		updates: make(chan progressMsg, 8),
		done:    make(chan doneMsg, 1),
	}
}

func (m *downloadModel) Init() tea.Cmd {
	return tea.Batch(m.run, m.next)
}

func (m *downloadModel) run() tea.Msg {
	go func() {
		var last time.Time
		dest, size, err := fetchCache(m.ctx, m.url, m.dir, func(received, total int64) {
			if time.Since(last) < 100*time.Millisecond {
				return
			}
			last = time.Now()
			rate := float64(received) / time.Since(m.started).Seconds()
			select {
			case m.updates <- progressMsg{received: received, total: total, rate: rate}:
			default:
			}
		})
		done := doneMsg{dest: dest, size: size, err: err}
		if err == nil {
			if s, lerr := LoadFile(m.ctx, dest); lerr == nil {
				done.count = s.Len()
				done.span[0], done.span[1], _ = s.Span()
			}
		}
		m.done <- done
	}()
	return nil
}

func (m *downloadModel) next() tea.Msg {
	select {
	case msg := <-m.updates:
		return msg
	case msg := <-m.done:
		return msg
	}
}

func (m *downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.result != nil || msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case progressMsg:
		m.progress = msg
		return m, m.next
	case doneMsg:
		m.result = &msg
	}
	return m, nil
}

func (m *downloadModel) View() string {
	if r := m.result; r != nil {
		if r.err != nil {
			return fmt.Sprintf("Download failed: %v\n\nFetch %s manually and save it to\n%s\n\nPress any key to exit.\n", r.err, m.url, filepath.Join(m.dir, cacheName+cacheExt(m.url, "")))
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Downloaded %s to %s\n", formatBytes(r.size), r.dest)
		if r.count > 0 {
			fmt.Fprintf(&sb, "%d events from %s to %s\n", r.count, r.span[0], r.span[1])
		}
		sb.WriteString("\nPress any key to exit.\n")
		return sb.String()
	}

	p := m.progress
	bar := strings.Repeat("░", progressBarWidth)
	info := formatBytes(p.received)
	if p.total > 0 {
		frac := min(float64(p.received)/float64(p.total), 1)
		filled := int(frac * progressBarWidth)
		bar = strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
		info = fmt.Sprintf("%s / %s  %.1f%%", formatBytes(p.received), formatBytes(p.total), frac*100)
	}
	if p.rate > 0 {
		info += "  " + formatBytes(int64(p.rate)) + "/s"
	}
	return fmt.Sprintf("Downloading events...\n\n[%s]\n%s\n\nctrl+c to cancel\n", bar, info)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Download fetches url into the events cache while showing a progress view.
func Download(ctx context.Context, url string) error {
	dir, err := CacheDir()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newDownloadModel(ctx, url, dir)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	if m.result == nil {
		return context.Canceled
	}
	return m.result.err
}
