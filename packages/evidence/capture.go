package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/report"
)

const (
	// DefaultExtension is the file extension used for snapshot artifacts
	DefaultExtension = ".png"
	// TimestampFormat is the wall-clock part of an artifact name
	TimestampFormat = "2006-01-02-15-04-05"
	// maxNameAttempts bounds the numbered-suffix retries when a name is taken
	maxNameAttempts = 100
)

// ErrCaptureFailed wraps every capture failure
var ErrCaptureFailed = errors.New("evidence capture failed")

// Snapshotter produces a point-in-time image of a driver session.
type Snapshotter interface {
	Snapshot(ctx context.Context, session string) ([]byte, error)
}

// ViewResetter is implemented by snapshotters that can normalize the view
// (scroll position and similar) before a capture.
type ViewResetter interface {
	ResetView(ctx context.Context, session string) error
}

// SnapshotFunc adapts a function to the Snapshotter interface.
type SnapshotFunc func(ctx context.Context, session string) ([]byte, error)

func (f SnapshotFunc) Snapshot(ctx context.Context, session string) ([]byte, error) {
	return f(ctx, session)
}

// Target describes what is being captured.
type Target struct {
	// Name is the owning report node name; it prefixes the artifact file name.
	Name string
	// Session is the driver session handle passed to the Snapshotter.
	Session string
	// Detail is an optional failure description stored with the evidence.
	Detail string
}

type Capturer struct {
	dir         string
	snapshotter Snapshotter
	extension   string
	now         func() time.Time
	logger      *slog.Logger
}

// Option is a functional option for configuring a Capturer.
type Option func(*Capturer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Capturer) {
		c.logger = logger
	}
}

// WithClock overrides the time source used for artifact names.
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) {
		c.now = now
	}
}

func WithExtension(ext string) Option {
	return func(c *Capturer) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extension = ext
	}
}

// NewCapturer creates a capturer writing into dir.
func NewCapturer(dir string, snapshotter Snapshotter, opts ...Option) *Capturer {
	c := &Capturer{
		dir:         dir,
		snapshotter: snapshotter,
		extension:   DefaultExtension,
		now:         time.Now,
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Capturer) Dir() string {
	return c.dir
}

// Capture takes a snapshot of target and persists it. On any failure it returns
// a zero Evidence and an error wrapping ErrCaptureFailed.
func (c *Capturer) Capture(ctx context.Context, target Target) (ev report.Evidence, err error) {
	if c == nil || c.snapshotter == nil {
		return report.Evidence{}, fmt.Errorf("%w: no snapshotter configured", ErrCaptureFailed)
	}

	defer func() {
		if r := recover(); r != nil {
			ev = report.Evidence{}
			err = fmt.Errorf("%w: snapshotter panicked: %v", ErrCaptureFailed, r)
		}
	}()

	if resetter, ok := c.snapshotter.(ViewResetter); ok {
		if rerr := resetter.ResetView(ctx, target.Session); rerr != nil {
			c.logger.Debug("view reset before capture failed", "name", target.Name, "error", rerr)
		}
	}

	data, err := c.snapshotter.Snapshot(ctx, target.Session)
	if err != nil {
		return report.Evidence{}, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if len(data) == 0 {
		return report.Evidence{}, fmt.Errorf("%w: empty snapshot", ErrCaptureFailed)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return report.Evidence{}, fmt.Errorf("%w: creating evidence directory: %v", ErrCaptureFailed, err)
	}

	capturedAt := c.now()
	path, err := c.write(ArtifactName(target.Name, capturedAt, c.extension), data)
	if err != nil {
		return report.Evidence{}, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	c.logger.Debug("evidence captured", "name", target.Name, "path", path)
	return report.Evidence{
		Path:       path,
		CapturedAt: capturedAt,
		Detail:     target.Detail,
	}, nil
}

// write creates the artifact exclusively, adding a numbered suffix when the
// name is already taken by a concurrent capture.
func (c *Capturer) write(name string, data []byte) (string, error) {
	base := strings.TrimSuffix(name, c.extension)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		candidate := name
		if attempt > 0 {
			candidate = fmt.Sprintf("%s-%d%s", base, attempt, c.extension)
		}
		path := filepath.Join(c.dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating artifact: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("writing artifact: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing artifact: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free artifact name for %s", name)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ArtifactName builds "<name>_<timestamp>_<nanoseconds><ext>" with the name
// reduced to file-system safe characters.
func ArtifactName(name string, at time.Time, ext string) string {
	safe := strings.Trim(unsafeNameChars.ReplaceAllString(name, "_"), "_")
	if safe == "" {
		safe = "evidence"
	}
	return fmt.Sprintf("%s_%s_%09d%s", safe, at.Format(TimestampFormat), at.Nanosecond(), ext)
}
