// Package backend selects between the direct network path and the yt-dlp
// subprocess path for media retrieval, with at most one fallback per
// operation.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// State is the per-operation orchestration state.
type State int

const (
	// StatePreferred means only the preferred path has been attempted.
	StatePreferred State = iota
	// StateFallenBack means the alternate path is being attempted after the
	// preferred path failed.
	StateFallenBack
	// StateExhausted means both paths were tried and failed.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StatePreferred:
		return "preferred"
	case StateFallenBack:
		return "fallen_back"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Path names one retrieval strategy.
type Path string

const (
	PathDirect Path = "direct"
	PathYtdlp  Path = "ytdlp"
)

// Attempt records one path attempt within a single operation.
type Attempt struct {
	Path Path
	Err  error
}

// Record is the per-operation attempt record. It lives in the call frame of
// one Fetch and is never shared between operations.
type Record struct {
	State    State
	Attempts []Attempt
}

// Section is a time window passed to the subprocess path.
type Section struct {
	StartSec int
	EndSec   int
}

// Request describes one retrieval operation.
type Request struct {
	// PageURL is the watch-page address, used by the subprocess path.
	PageURL string
	// StreamURL is a resolved media URL, used by the direct path. Empty
	// when only the subprocess path can serve the request.
	StreamURL string
	// FormatExpr is the format-selection expression for the subprocess.
	FormatExpr string
	// OutputPath is the explicit destination file.
	OutputPath string
	// Section bounds a partial retrieval; nil fetches the whole source.
	Section *Section

	Headers     http.Header
	CookiesFile string
	RateLimit   string
	Retries     int
}

var (
	// ErrNoDirectURL indicates the direct path has no resolved stream URL
	// to fetch.
	ErrNoDirectURL = errors.New("no direct stream url")
	// ErrToolMissing indicates a required external tool is not installed.
	ErrToolMissing = errors.New("required tool not found")
)

// ExhaustedError is returned when every permitted path failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all retrieval paths failed"
	}
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("all retrieval paths failed: %d attempt(s), last %s: %v",
		len(e.Attempts), last.Path, last.Err)
}

func (e *ExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Logger is the minimal logging surface the orchestrator needs.
type Logger interface {
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any) {}

// fetcher is one retrieval path.
type fetcher interface {
	Name() Path
	Available() bool
	Fetch(ctx context.Context, req Request) (string, error)
}

// Config wires an Orchestrator.
type Config struct {
	HTTPClient      *http.Client
	YtdlpPath       string
	ForceDirect     bool
	DisableFallback bool
	Logger          Logger
}

// Orchestrator applies the backend selection policy.
type Orchestrator struct {
	direct          fetcher
	subprocess      fetcher
	forceDirect     bool
	fallbackEnabled bool
	logger          Logger
}

// New builds an Orchestrator with the real direct and subprocess paths.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Orchestrator{
		direct:          newDirectFetcher(cfg.HTTPClient),
		subprocess:      newYtdlpRunner(cfg.YtdlpPath, logger),
		forceDirect:     cfg.ForceDirect,
		fallbackEnabled: !cfg.DisableFallback,
		logger:          logger,
	}
}

// SubprocessAvailable reports whether the subprocess path can run on this
// host.
func (o *Orchestrator) SubprocessAvailable() bool {
	return o.subprocess.Available()
}

// Fetch retrieves a whole source, trying the preferred path first and the
// alternate path at most once. It returns the produced file path and the
// operation's attempt record.
func (o *Orchestrator) Fetch(ctx context.Context, req Request) (string, *Record, error) {
	rec := &Record{State: StatePreferred}

	order := o.pathOrder()
	out, err := order[0].Fetch(ctx, req)
	if err == nil {
		return out, rec, nil
	}
	rec.Attempts = append(rec.Attempts, Attempt{Path: order[0].Name(), Err: err})

	if !o.fallbackEnabled || len(order) < 2 {
		rec.State = StateExhausted
		return "", rec, &ExhaustedError{Attempts: rec.Attempts}
	}

	rec.State = StateFallenBack
	o.logger.Warnf("%s path failed, falling back to %s: %v", order[0].Name(), order[1].Name(), err)
	out, err = order[1].Fetch(ctx, req)
	if err == nil {
		return out, rec, nil
	}
	rec.Attempts = append(rec.Attempts, Attempt{Path: order[1].Name(), Err: err})
	rec.State = StateExhausted
	return "", rec, &ExhaustedError{Attempts: rec.Attempts}
}

// FetchSection retrieves a time-bounded partial source. Only the subprocess
// path can perform windowed retrieval of protected streams, so its absence is
// a fatal precondition, not a fallback trigger.
func (o *Orchestrator) FetchSection(ctx context.Context, req Request) (string, *Record, error) {
	if req.Section == nil {
		return o.Fetch(ctx, req)
	}
	return o.FetchSubprocess(ctx, req)
}

// FetchSubprocess retrieves via the subprocess path alone, with no fallback.
// Segment and batch operations use it: their retrieval is mandatory-subprocess
// and a missing binary is a fatal precondition, never an attempt.
func (o *Orchestrator) FetchSubprocess(ctx context.Context, req Request) (string, *Record, error) {
	if !o.subprocess.Available() {
		return "", nil, fmt.Errorf("%w: yt-dlp (required for segment retrieval)", ErrToolMissing)
	}
	rec := &Record{State: StatePreferred}
	out, err := o.subprocess.Fetch(ctx, req)
	if err != nil {
		rec.Attempts = append(rec.Attempts, Attempt{Path: PathYtdlp, Err: err})
		rec.State = StateExhausted
		return "", rec, &ExhaustedError{Attempts: rec.Attempts}
	}
	return out, rec, nil
}

// pathOrder returns the permitted paths in trial order. The subprocess path
// is preferred when present because it copes better with anti-automation
// defenses; a caller can force the direct path instead.
func (o *Orchestrator) pathOrder() []fetcher {
	if o.forceDirect {
		return []fetcher{o.direct, o.subprocess}
	}
	if o.subprocess.Available() {
		return []fetcher{o.subprocess, o.direct}
	}
	return []fetcher{o.direct, o.subprocess}
}
