package backend

import (
	"context"
	"errors"
	"testing"
)

type fakeFetcher struct {
	name      Path
	available bool
	err       error
	out       string
	calls     int
}

func (f *fakeFetcher) Name() Path      { return f.name }
func (f *fakeFetcher) Available() bool { return f.available }
func (f *fakeFetcher) Fetch(ctx context.Context, req Request) (string, error) {
	f.calls++
	return f.out, f.err
}

func newTestOrchestrator(direct, sub *fakeFetcher, forceDirect, disableFallback bool) *Orchestrator {
	return &Orchestrator{
		direct:          direct,
		subprocess:      sub,
		forceDirect:     forceDirect,
		fallbackEnabled: !disableFallback,
		logger:          nopLogger{},
	}
}

func TestFetch_PrefersSubprocessWhenAvailable(t *testing.T) {
	direct := &fakeFetcher{name: PathDirect, available: true, out: "direct.mp4"}
	sub := &fakeFetcher{name: PathYtdlp, available: true, out: "sub.mp4"}
	o := newTestOrchestrator(direct, sub, false, false)

	out, rec, err := o.Fetch(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if out != "sub.mp4" || sub.calls != 1 || direct.calls != 0 {
		t.Fatalf("out=%q sub=%d direct=%d", out, sub.calls, direct.calls)
	}
	if rec.State != StatePreferred || len(rec.Attempts) != 0 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestFetch_ForceDirectSkipsSubprocess(t *testing.T) {
	direct := &fakeFetcher{name: PathDirect, available: true, out: "direct.mp4"}
	sub := &fakeFetcher{name: PathYtdlp, available: true, out: "sub.mp4"}
	o := newTestOrchestrator(direct, sub, true, false)

	out, _, err := o.Fetch(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if out != "direct.mp4" || direct.calls != 1 || sub.calls != 0 {
		t.Fatalf("out=%q direct=%d sub=%d", out, direct.calls, sub.calls)
	}
}

func TestFetch_FallsBackOnce(t *testing.T) {
	bootErr := errors.New("boom")
	direct := &fakeFetcher{name: PathDirect, available: true, out: "direct.mp4"}
	sub := &fakeFetcher{name: PathYtdlp, available: true, err: bootErr}
	o := newTestOrchestrator(direct, sub, false, false)

	out, rec, err := o.Fetch(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if out != "direct.mp4" {
		t.Fatalf("out = %q", out)
	}
	if rec.State != StateFallenBack {
		t.Fatalf("state = %v", rec.State)
	}
	if len(rec.Attempts) != 1 || rec.Attempts[0].Path != PathYtdlp {
		t.Fatalf("attempts = %+v", rec.Attempts)
	}
}

func TestFetch_ExhaustedWrapsLastError(t *testing.T) {
	directErr := errors.New("direct down")
	subErr := errors.New("sub down")
	direct := &fakeFetcher{name: PathDirect, available: true, err: directErr}
	sub := &fakeFetcher{name: PathYtdlp, available: true, err: subErr}
	o := newTestOrchestrator(direct, sub, false, false)

	_, rec, err := o.Fetch(context.Background(), Request{})
	if rec.State != StateExhausted {
		t.Fatalf("state = %v", rec.State)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %T", err)
	}
	if len(exhausted.Attempts) != 2 {
		t.Fatalf("attempts = %+v", exhausted.Attempts)
	}
	// The most recent attempt's error must surface via Unwrap.
	if !errors.Is(err, directErr) {
		t.Fatalf("unwrap = %v", errors.Unwrap(err))
	}
}

func TestFetch_NoFallbackWhenDisabled(t *testing.T) {
	direct := &fakeFetcher{name: PathDirect, available: true, out: "direct.mp4"}
	sub := &fakeFetcher{name: PathYtdlp, available: true, err: errors.New("boom")}
	o := newTestOrchestrator(direct, sub, false, true)

	_, rec, err := o.Fetch(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error with fallback disabled")
	}
	if rec.State != StateExhausted || direct.calls != 0 {
		t.Fatalf("state=%v direct=%d", rec.State, direct.calls)
	}
}

func TestFetchSection_RequiresSubprocess(t *testing.T) {
	direct := &fakeFetcher{name: PathDirect, available: true}
	sub := &fakeFetcher{name: PathYtdlp, available: false}
	o := newTestOrchestrator(direct, sub, false, false)

	_, _, err := o.FetchSection(context.Background(), Request{Section: &Section{StartSec: 0, EndSec: 10}})
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("err = %v, want ErrToolMissing", err)
	}
	if direct.calls != 0 {
		t.Fatal("direct path must not be attempted for sections")
	}
}

func TestFetchSection_NoFallbackToDirect(t *testing.T) {
	direct := &fakeFetcher{name: PathDirect, available: true, out: "direct.mp4"}
	sub := &fakeFetcher{name: PathYtdlp, available: true, err: errors.New("boom")}
	o := newTestOrchestrator(direct, sub, false, false)

	_, rec, err := o.FetchSection(context.Background(), Request{Section: &Section{StartSec: 5, EndSec: 25}})
	if err == nil {
		t.Fatal("expected error")
	}
	if rec.State != StateExhausted || direct.calls != 0 {
		t.Fatalf("state=%v direct=%d", rec.State, direct.calls)
	}
}

func TestFetchSubprocess_MissingToolIsPrecondition(t *testing.T) {
	direct := &fakeFetcher{name: PathDirect, available: true, out: "direct.mp4"}
	sub := &fakeFetcher{name: PathYtdlp, available: false}
	o := newTestOrchestrator(direct, sub, false, false)

	_, _, err := o.FetchSubprocess(context.Background(), Request{})
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("err = %v, want ErrToolMissing", err)
	}
	if direct.calls != 0 || sub.calls != 0 {
		t.Fatalf("no path may be attempted: direct=%d sub=%d", direct.calls, sub.calls)
	}
}

func TestFetchSubprocess_NeverFallsBack(t *testing.T) {
	direct := &fakeFetcher{name: PathDirect, available: true, out: "direct.mp4"}
	sub := &fakeFetcher{name: PathYtdlp, available: true, err: errors.New("boom")}
	o := newTestOrchestrator(direct, sub, false, false)

	_, rec, err := o.FetchSubprocess(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if rec.State != StateExhausted || direct.calls != 0 || sub.calls != 1 {
		t.Fatalf("state=%v direct=%d sub=%d", rec.State, direct.calls, sub.calls)
	}
}

func TestStateString(t *testing.T) {
	if StatePreferred.String() != "preferred" ||
		StateFallenBack.String() != "fallen_back" ||
		StateExhausted.String() != "exhausted" {
		t.Fatal("state names changed")
	}
}
