// Package cmd is the thin external wrapper around the core packages: flag
// parsing, output formatting, and mode dispatch. Spec.md §1 names the CLI
// argument parser as out-of-scope plumbing that the core knows nothing
// about; this package is that plumbing, grounded in the teacher's
// cmd/root.go idiom (hand-rolled flag.FlagSet, a printUsage banner, an
// ExitCodeError the entrypoint unwraps without printing "Error:" noise)
// rather than a third-party CLI framework, since the teacher never reaches
// for one either.
package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/chrono-triage/dumptriage/config"
	"github.com/chrono-triage/dumptriage/inspector"
	"github.com/chrono-triage/dumptriage/model"
	"github.com/chrono-triage/dumptriage/narrator"
	"github.com/chrono-triage/dumptriage/reasoner"
	"github.com/chrono-triage/dumptriage/snapshot"
	"github.com/chrono-triage/dumptriage/triagehistory"
	"github.com/chrono-triage/dumptriage/tui"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// Open opens the dump at path and returns an Inspector over it. The real
// dump-reader library is an external collaborator (spec.md §1); this
// module never parses dump bytes itself. A deployment links a concrete
// implementation in by replacing this var during program init (the same
// injection seam snapshot.Build itself takes as its open parameter).
var Open inspector.Open = func(path string) (inspector.Inspector, error) {
	return nil, fmt.Errorf("no dump-reader backend is linked into this binary")
}

// ExitCodeError signals a non-zero exit code without calling os.Exit
// directly, so Run stays testable.
type ExitCodeError struct{ Code int }

func (e ExitCodeError) Error() string { return fmt.Sprintf("exit %d", e.Code) }

func printUsage() {
	fmt.Fprintf(os.Stderr, `dumptriage v%s — triage a managed-runtime process dump

Usage:
  dumptriage [flags] DUMP_PATH

Flags:
  -s, -strings N            Max distinct strings to capture from stack roots (default 500)
      -max-string-length N  Truncation budget per captured string (default 65536, <=0 -> 65536)
      -heap-strings N       Extra heap-object strings to capture beyond stack roots (default 500)
      -heap-histogram N     Number of heap types to surface in the histogram (default 10)
      -max-stack-frames N   Max frames captured per thread (default 30, <=0 -> 30)
      -top-stack-threads N  Threads kept for display (default 5, <=0 -> 5)
  -j, -json PATH             Write the full {snapshot, findings} report as pretty JSON to PATH
      -interactive            Page through findings in a terminal UI instead of printing them
      -history-db PATH        Append this run's outcome to a local sqlite history file
      -narrate-endpoint URL   POST findings to a remote text-generation endpoint and print its prose
      -mask-ips               Redact IPv4 addresses from printed output
  -h, -help                   Show this help and exit

Examples:
  dumptriage core.dmp
  dumptriage -json report.json core.dmp
  dumptriage -interactive core.dmp
  dumptriage -history-db ~/.dumptriage/history.db core.dmp
`, Version)
}

// clampNonNegative returns 0 for negative n, n otherwise.
func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// clampOrDefault returns def when n <= 0, n otherwise (spec.md CLI surface:
// MaxStringLength/MaxStackFrames/TopStackThreads fall back to their default
// on a non-positive value rather than clamping to 0).
func clampOrDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

var ipv4Pattern = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)

func maskIPs(s string) string {
	return ipv4Pattern.ReplaceAllString(s, "x.x.x.x")
}

// Run parses flags and drives one triage run. It is the sole entrypoint
// main.go calls.
func Run() error {
	defaults := config.Load()

	var (
		maxStrings     int
		maxStringLen   int
		heapStrings    int
		heapHistogram  int
		maxStackFrames int
		topThreads     int
		jsonPath       string
		interactive    bool
		historyDB      string
		narrateURL     string
		maskIPsFlag    bool
		showHelp       bool
	)

	fs := flag.NewFlagSet("dumptriage", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // we print our own usage
	fs.IntVar(&maxStrings, "strings", defaults.MaxStringsToCapture, "")
	fs.IntVar(&maxStrings, "s", defaults.MaxStringsToCapture, "")
	fs.IntVar(&maxStringLen, "max-string-length", defaults.MaxStringLength, "")
	fs.IntVar(&heapStrings, "heap-strings", defaults.HeapStringLimit, "")
	fs.IntVar(&heapHistogram, "heap-histogram", defaults.HeapHistogramCount, "")
	fs.IntVar(&maxStackFrames, "max-stack-frames", defaults.MaxStackFrames, "")
	fs.IntVar(&topThreads, "top-stack-threads", defaults.TopStackThreads, "")
	fs.StringVar(&jsonPath, "json", "", "")
	fs.StringVar(&jsonPath, "j", "", "")
	fs.BoolVar(&interactive, "interactive", false, "")
	fs.StringVar(&historyDB, "history-db", defaults.HistoryDB, "")
	fs.StringVar(&narrateURL, "narrate-endpoint", defaults.NarrateEndpoint, "")
	fs.BoolVar(&maskIPsFlag, "mask-ips", defaults.MaskIPs, "")
	fs.BoolVar(&showHelp, "help", false, "")
	fs.BoolVar(&showHelp, "h", false, "")
	fs.Usage = printUsage

	if err := fs.Parse(os.Args[1:]); err != nil {
		printUsage()
		return ExitCodeError{Code: 2}
	}

	if showHelp {
		printUsage()
		return nil
	}

	args := fs.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: missing DUMP_PATH")
		printUsage()
		return ExitCodeError{Code: 2}
	}
	dumpPath := args[0]

	opts := snapshot.Options{
		MaxStringsToCapture: clampNonNegative(maxStrings),
		MaxStringLength:     clampOrDefault(maxStringLen, 65536),
		HeapStringLimit:     clampNonNegative(heapStrings),
		HeapHistogramCount:  clampNonNegative(heapHistogram),
		MaxStackFrames:      clampOrDefault(maxStackFrames, 30),
		TopStackThreads:     clampOrDefault(topThreads, 5),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	snap, err := snapshot.Build(ctx, dumpPath, opts, Open)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitCodeError{Code: 1}
	}

	findings := reasoner.Analyze(snap)

	if historyDB != "" {
		if err := recordHistory(ctx, historyDB, dumpPath, snap, findings); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record history: %v\n", err)
		}
	}

	if interactive {
		if err := tui.Run(dumpPath, findings); err != nil {
			return fmt.Errorf("interactive pager: %w", err)
		}
		return nil
	}

	if jsonPath != "" {
		if err := writeJSONReport(jsonPath, snap, findings); err != nil {
			return fmt.Errorf("write json report: %w", err)
		}
	} else {
		printFindings(os.Stdout, snap, findings, maskIPsFlag)
	}

	if narrateURL != "" {
		nc := narrator.New(narrateURL)
		prose, err := nc.Narrate(ctx, dumpPath, findings)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: narration failed: %v\n", err)
		} else if prose != "" {
			fmt.Fprintf(os.Stdout, "\n--- narration ---\n%s\n", prose)
		}
	}

	for _, f := range findings {
		if f.Severity == model.SeverityCritical {
			return ExitCodeError{Code: 1}
		}
	}
	return nil
}

type report struct {
	Snapshot *model.Snapshot `json:"snapshot"`
	Findings []model.Finding `json:"findings"`
}

func writeJSONReport(path string, snap *model.Snapshot, findings []model.Finding) error {
	data, err := json.MarshalIndent(report{Snapshot: snap, Findings: findings}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func printFindings(w io.Writer, snap *model.Snapshot, findings []model.Finding, mask bool) {
	header := fmt.Sprintf("dumptriage — %s (%s)\n", snap.DumpPath, snap.RuntimeDescription)
	header += fmt.Sprintf("  threads=%d heap=%s strings=%d/%d modules=%d\n\n",
		snap.TotalThreadCount,
		humanize.IBytes(snap.GC.TotalHeapBytes),
		snap.UniqueStringCount, snap.TotalStringOccurrences,
		snap.TotalModuleCount,
	)
	if mask {
		header = maskIPs(header)
	}
	io.WriteString(w, header)

	for _, f := range findings {
		line := fmt.Sprintf("[%s] %s\n", f.Severity, f.Title)
		if f.Evidence != "" {
			line += "  evidence: " + f.Evidence + "\n"
		}
		if f.Recommendation != "" {
			line += "  fix: " + f.Recommendation + "\n"
		}
		if mask {
			line = maskIPs(line)
		}
		io.WriteString(w, line)
	}
}

func recordHistory(ctx context.Context, path, dumpPath string, snap *model.Snapshot, findings []model.Finding) error {
	store, err := triagehistory.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Record(ctx, triagehistory.Run{
		ID:        uuid.NewString(),
		RanAt:     time.Now(),
		DumpPath:  dumpPath,
		RuntimeID: snap.RuntimeDescription,
		Findings:  findings,
	})
}
