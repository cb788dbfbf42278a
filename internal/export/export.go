// Package export renders project reports to temporary files and streams
// them to the caller. The file is removed on every exit path.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/projectdash/dashboard-backend/internal/apperr"
	"github.com/projectdash/dashboard-backend/internal/metrics"
	"github.com/projectdash/dashboard-backend/internal/projects/domain"
)

type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

const filePrefix = "export-"

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatPDF:
		return f, nil
	default:
		return "", apperr.Validation("unsupported export format %q: must be csv or pdf", s)
	}
}

// Artifact is a rendered report ready to be streamed.
type Artifact struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Exporter struct {
	dir       string
	renderers map[Format]Renderer
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New creates an exporter writing into dir, or a projectdash-exports
// directory under the OS temp dir when empty.
func New(dir string, m *metrics.Metrics) *Exporter {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "projectdash-exports")
	}
	return &Exporter{
		dir: dir,
		renderers: map[Format]Renderer{
			FormatCSV: CSVRenderer{},
			FormatPDF: PDFRenderer{},
		},
		metrics: m,
		now:     time.Now,
	}
}

// Export renders p and hands the artifact to send. The temporary file is
// closed and removed whether rendering, sending or neither fails.
func (e *Exporter) Export(ctx context.Context, p *domain.Project, format Format, send func(Artifact) error) (err error) {
	r, ok := e.renderers[format]
	if !ok {
		return apperr.Validation("unsupported export format %q: must be csv or pdf", string(format))
	}
	defer func() {
		outcome := "sent"
		if err != nil {
			outcome = "failed"
		}
		e.metrics.Export(string(format), outcome)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("export dir: %w", err)
	}

	f, err := os.CreateTemp(e.dir, filePrefix+"*"+r.Extension())
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	if err := r.Render(f, p); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	size, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("export size: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind export: %w", err)
	}

	return send(Artifact{
		Filename:    Filename(p, format),
		ContentType: r.ContentType(),
		Size:        size,
		Body:        f,
	})
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename builds a download name from the project name.
func Filename(p *domain.Project, format Format) string {
	base := strings.Trim(unsafeChars.ReplaceAllString(p.Name, "_"), "_.")
	if base == "" {
		base = "project"
	}
	return base + "_report." + string(format)
}

// Sweep removes export files older than maxAge left behind by a crashed
// process. It returns the number of files removed.
func (e *Exporter) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(e.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read export dir: %w", err)
	}

	cutoff := e.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(e.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
