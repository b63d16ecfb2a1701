package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitreport/packages/history"
	"github.com/abdul-hamid-achik/hitreport/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const (
	// WatchDebounceDelay is the debounce delay for history database writes
	WatchDebounceDelay = 300 * time.Millisecond
)

var reportFormats = []string{"console", "json", "junit", "html", "tap"}

var (
	formatFlag   string
	outputFlag   string
	dbFlag       string
	watchFlag    bool
	exitCodeFlag bool
	verboseFlag  bool
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Render a stored run",
	Long: `Render a run from the history database as console, JSON, JUnit, HTML or TAP.
Without a run id the latest run is rendered.

Examples:
  hitreport report
  hitreport report 5f1c... --format junit --output junit.xml
  hitreport report --format html --output reports/index.html --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: reportCommand,
}

func init() {
	reportCmd.Flags().StringVarP(&formatFlag, "format", "f", "console", "Output format: console, json, junit, html, tap")
	reportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the report to a file instead of stdout")
	reportCmd.Flags().StringVar(&dbFlag, "db", "", "History database (default: historyDSN from the config)")
	reportCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Render again whenever the history database changes")
	reportCmd.Flags().BoolVar(&exitCodeFlag, "exit-code", false, "Exit with 1 when the rendered run has failures")
	reportCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Print descriptions, passing steps and evidence")
}

// openHistory opens the database named by --db or the config's historyDSN
func openHistory(cmd *cobra.Command) (*history.Store, error) {
	dsn := dbFlag
	if dsn == "" {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		dsn = cfg.HistoryDSN
	}
	if dsn == "" {
		return nil, withExitCode(ExitUsageError, errors.New("no history database: set historyDSN or pass --db"))
	}
	store, err := history.Open(dsn)
	if err != nil {
		return nil, withExitCode(ExitReportError, err)
	}
	return store, nil
}

func reportCommand(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(formatFlag)
	if !slices.Contains(reportFormats, format) {
		return withExitCode(ExitUsageError, fmt.Errorf("unknown format %q, expected one of %s", formatFlag, strings.Join(reportFormats, ", ")))
	}

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	var runID string
	if len(args) > 0 {
		runID = args[0]
	}

	r := &renderer{store: store, runID: runID, format: format, path: outputFlag, stdout: cmd.OutOrStdout()}
	run, err := r.render(cmd.Context())
	if err != nil {
		return err
	}

	if !watchFlag {
		if exitCodeFlag && run.Failed > 0 {
			return withExitCode(ExitTestFailure, fmt.Errorf("run %s has %d failed tests", run.ID, run.Failed))
		}
		return nil
	}
	return r.watch(cmd)
}

// newFormatSink builds the output sink for format writing to w
func newFormatSink(format string, w io.Writer) (output.Sink, error) {
	switch format {
	case "json":
		return output.NewJSONSink(output.JSONWithWriter(w)), nil
	case "junit":
		return output.NewJUnitSink(output.JUnitWithWriter(w)), nil
	case "html":
		return output.NewHTMLSink(output.HTMLWithWriter(w), output.HTMLWithVersion(version)), nil
	case "tap":
		return output.NewTAPSink(output.TAPWithWriter(w)), nil
	case "console":
		_, isFile := w.(*os.File)
		return output.NewConsoleSink(
			output.WithWriter(w),
			output.WithVerbose(verboseFlag),
			output.WithNoColor(!isFile || outputFlag != ""),
		), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// renderer replays one run from the store into a report
type renderer struct {
	store  *history.Store
	runID  string
	format string
	path   string
	stdout io.Writer

	mu sync.Mutex
}

func (r *renderer) render(ctx context.Context) (*history.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		run     *history.Run
		records []output.TestRecord
		err     error
	)
	if r.runID != "" {
		run, records, err = r.store.LoadRun(ctx, r.runID)
	} else {
		run, records, err = r.store.LatestRun(ctx)
	}
	if err != nil {
		return nil, withExitCode(ExitReportError, err)
	}

	w := r.stdout
	if r.path != "" {
		if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
			return nil, withExitCode(ExitReportError, err)
		}
		f, err := os.Create(r.path)
		if err != nil {
			return nil, withExitCode(ExitReportError, fmt.Errorf("failed to create %s: %w", r.path, err))
		}
		defer f.Close()
		w = f
	}

	sink, err := newFormatSink(r.format, w)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}
	if err := history.Replay(run, records, sink); err != nil {
		return nil, withExitCode(ExitReportError, err)
	}
	return run, nil
}

// watch renders again after writes to the history database settle
func (r *renderer) watch(cmd *cobra.Command) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dbPath := r.store.Path()
	if err := watcher.Add(filepath.Dir(dbPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dbPath, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\nWatching %s for new results... (press Ctrl+C to stop)\n", dbPath)

	ctx := cmd.Context()
	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// SQLite writes through -wal and -journal files next to the database.
			if !strings.HasPrefix(filepath.Base(event.Name), filepath.Base(dbPath)) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				if _, err := r.render(ctx); err != nil {
					output.FormatError(cmd.ErrOrStderr(), err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			output.FormatError(cmd.ErrOrStderr(), fmt.Errorf("watcher error: %w", err))
		}
	}
}
