package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"darter/internal/execx"
	"darter/internal/models"
)

// scriptedSpawner answers protocol steps from a script function and records
// every request it sees.
type scriptedSpawner struct {
	mu       sync.Mutex
	requests []Request
	detached [][]string
	respond  func(ctx context.Context, req Request, call int) (*execx.Result, error)
}

func (f *scriptedSpawner) Spawn(ctx context.Context, argv []string, stdin []byte, _ time.Duration) (*execx.Result, error) {
	var req Request
	if err := json.Unmarshal(stdin, &req); err != nil {
		return nil, fmt.Errorf("bad request payload: %w", err)
	}
	f.mu.Lock()
	call := len(f.requests)
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()
	return respond(ctx, req, call)
}

func (f *scriptedSpawner) SpawnDetached(argv []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = append(f.detached, argv)
	return nil
}

func (f *scriptedSpawner) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *scriptedSpawner) request(i int) Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func resultsJSON(t *testing.T, resp Response) *execx.Result {
	t.Helper()
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &execx.Result{Stdout: data}
}

func resultList(ids ...string) []Result {
	var out []Result
	for _, id := range ids {
		out = append(out, Result{ID: id, Name: id})
	}
	return out
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func waitResults(t *testing.T, ch <-chan Event) ResultsEvent {
	t.Helper()
	for {
		e := waitEvent(t, ch)
		if re, ok := e.(ResultsEvent); ok {
			return re
		}
	}
}

func assertNoEvent(t *testing.T, ch <-chan Event, d time.Duration) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %T: %+v", e, e)
	case <-time.After(d):
	}
}

func testManifest() Manifest {
	return Manifest{ID: "demo", Name: "Demo", Handler: CommandLine{"demo-handler"}, InputMode: InputRealtime}
}

func newTestRunner(spawner *scriptedSpawner, history HistoryRecorder) *Runner {
	r := NewRunner(spawner, history)
	r.Debounce = 5 * time.Millisecond
	return r
}

func TestEnterIssuesInitialStep(t *testing.T) {
	sp := &scriptedSpawner{respond: func(_ context.Context, req Request, _ int) (*execx.Result, error) {
		return resultsJSON(t, Response{Type: "results", Results: resultList("one"), Placeholder: "Search demo..."}), nil
	}}
	r := newTestRunner(sp, nil)

	r.Enter(testManifest())
	re := waitResults(t, r.Events())
	if len(re.Results) != 1 || re.Results[0].ID != "one" {
		t.Fatalf("Unexpected results: %+v", re.Results)
	}
	if re.Placeholder != "Search demo..." {
		t.Errorf("Placeholder not applied: %q", re.Placeholder)
	}
	if got := sp.request(0); got.Step != StepInitial || got.Session == "" {
		t.Errorf("Bad initial request: %+v", got)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctxVal := "X"
	sp := &scriptedSpawner{respond: func(_ context.Context, req Request, call int) (*execx.Result, error) {
		if call == 0 {
			return resultsJSON(t, Response{Type: "results", Results: resultList("a"), Context: &ctxVal}), nil
		}
		return resultsJSON(t, Response{Type: "results", Results: resultList("b")}), nil
	}}
	r := newTestRunner(sp, nil)

	r.Enter(testManifest())
	waitResults(t, r.Events())

	r.Submit("hello")
	waitResults(t, r.Events())

	req := sp.request(1)
	if req.Step != StepSearch || req.Query != "hello" {
		t.Fatalf("Unexpected search request: %+v", req)
	}
	if req.Context != "X" {
		t.Errorf("Context not echoed: %q", req.Context)
	}
}

func TestDrillDownAndBackRestoresWithoutReinvoking(t *testing.T) {
	sp := &scriptedSpawner{respond: func(_ context.Context, req Request, _ int) (*execx.Result, error) {
		switch req.Step {
		case StepInitial:
			return resultsJSON(t, Response{Type: "results", Results: resultList("top-1", "top-2")}), nil
		case StepAction:
			return resultsJSON(t, Response{Type: "results", Results: resultList("detail-1")}), nil
		}
		return resultsJSON(t, Response{Type: "error", Message: "unexpected step"}), nil
	}}
	r := newTestRunner(sp, nil)

	r.Enter(testManifest())
	first := waitResults(t, r.Events())

	r.Select("top-1")
	drill := waitResults(t, r.Events())
	if len(drill.Results) != 1 || drill.Results[0].ID != "detail-1" {
		t.Fatalf("Unexpected drill-down results: %+v", drill.Results)
	}
	if r.NavDepth() != 1 {
		t.Errorf("Expected nav depth 1, got %d", r.NavDepth())
	}

	calls := sp.requestCount()
	r.Back()
	restored := waitResults(t, r.Events())
	if !restored.Restored {
		t.Error("Expected restored flag on back-navigation results")
	}
	if len(restored.Results) != len(first.Results) {
		t.Fatalf("Restored list length %d, want %d", len(restored.Results), len(first.Results))
	}
	for i := range first.Results {
		if restored.Results[i].ID != first.Results[i].ID {
			t.Errorf("Restored order differs at %d: %s vs %s", i, restored.Results[i].ID, first.Results[i].ID)
		}
	}
	if sp.requestCount() != calls {
		t.Errorf("Back must not re-invoke the handler (%d -> %d calls)", calls, sp.requestCount())
	}

	// Back at the initial step exits the plugin entirely.
	r.Back()
	if _, ok := waitEvent(t, r.Events()).(ExitedEvent); !ok {
		t.Error("Expected ExitedEvent at bottom of stack")
	}
	if r.Active() {
		t.Error("Session should be destroyed after exiting")
	}
}

func TestSupersededInvocationIsDropped(t *testing.T) {
	release := make(chan struct{})
	sp := &scriptedSpawner{}
	sp.respond = func(_ context.Context, req Request, _ int) (*execx.Result, error) {
		switch {
		case req.Step == StepInitial:
			return resultsJSON(t, Response{Type: "results", Results: resultList("init")}), nil
		case req.Query == "a":
			<-release // finish after the newer invocation
			return resultsJSON(t, Response{Type: "results", Results: resultList("a-res")}), nil
		default:
			return resultsJSON(t, Response{Type: "results", Results: resultList("ab-res")}), nil
		}
	}
	r := newTestRunner(sp, nil)

	r.Enter(testManifest())
	waitResults(t, r.Events())

	r.Submit("a")
	// Wait until the slow invocation is actually in flight.
	for sp.requestCount() < 2 {
		time.Sleep(time.Millisecond)
	}
	r.Submit("ab")

	re := waitResults(t, r.Events())
	if len(re.Results) != 1 || re.Results[0].ID != "ab-res" {
		t.Fatalf("Expected ab-res applied, got %+v", re.Results)
	}

	// Let the stale process finish; its response must never surface.
	close(release)
	assertNoEvent(t, r.Events(), 100*time.Millisecond)
}

func TestRealtimeInputIsDebounced(t *testing.T) {
	sp := &scriptedSpawner{respond: func(_ context.Context, req Request, _ int) (*execx.Result, error) {
		return resultsJSON(t, Response{Type: "results", Results: resultList(req.Query)}), nil
	}}
	r := newTestRunner(sp, nil)
	r.Debounce = 30 * time.Millisecond

	r.Enter(testManifest())
	waitResults(t, r.Events())

	r.Input("f")
	r.Input("fi")
	r.Input("fire")

	re := waitResults(t, r.Events())
	if re.Results[0].ID != "fire" {
		t.Errorf("Expected only the coalesced query, got %q", re.Results[0].ID)
	}
	if sp.requestCount() != 2 { // initial + one debounced search
		t.Errorf("Expected 2 handler invocations, got %d", sp.requestCount())
	}
	if got := sp.request(1); got.Step != StepSearch || got.Query != "fire" {
		t.Errorf("Unexpected search request: %+v", got)
	}
}

func TestSubmitModeSearchesOnlyOnSubmit(t *testing.T) {
	sp := &scriptedSpawner{respond: func(_ context.Context, req Request, _ int) (*execx.Result, error) {
		return resultsJSON(t, Response{Type: "results", Results: resultList("r"), InputMode: InputSubmit}), nil
	}}
	r := newTestRunner(sp, nil)

	m := testManifest()
	m.InputMode = InputSubmit
	r.Enter(m)
	waitResults(t, r.Events())

	r.Input("typed text")
	assertNoEvent(t, r.Events(), 50*time.Millisecond)
	if sp.requestCount() != 1 {
		t.Fatalf("Submit-mode input must not invoke the handler, got %d calls", sp.requestCount())
	}

	r.Submit("typed text")
	waitResults(t, r.Events())
	if got := sp.request(1); got.Query != "typed text" {
		t.Errorf("Unexpected submit query: %q", got.Query)
	}
}

type recordedSelection struct {
	id   string
	kind models.ItemKind
	term string
}

type fakeHistory struct {
	mu   sync.Mutex
	recs []recordedSelection
}

func (f *fakeHistory) RecordSelection(id string, kind models.ItemKind, term string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, recordedSelection{id, kind, term})
	return nil
}

func TestExecuteCloseTearsDownSession(t *testing.T) {
	sp := &scriptedSpawner{respond: func(_ context.Context, req Request, _ int) (*execx.Result, error) {
		if req.Step == StepInitial {
			return resultsJSON(t, Response{Type: "results", Results: resultList("item")}), nil
		}
		return resultsJSON(t, Response{Type: "execute", Execute: &Execute{
			Command: CommandLine{"notify-send", "done"},
			Notify:  "Copied",
			Close:   true,
			Name:    "Copy thing",
		}}), nil
	}}
	hist := &fakeHistory{}
	r := newTestRunner(sp, hist)

	r.Enter(testManifest())
	waitResults(t, r.Events())

	r.Select("item")
	closed, ok := waitEvent(t, r.Events()).(ClosedEvent)
	if !ok {
		t.Fatal("Expected ClosedEvent for close:true execute")
	}
	if closed.Notify != "Copied" {
		t.Errorf("Notify not carried: %q", closed.Notify)
	}
	if r.Active() {
		t.Error("Session must be fully destroyed on hard close")
	}

	sp.mu.Lock()
	detached := len(sp.detached)
	sp.mu.Unlock()
	if detached != 1 {
		t.Errorf("Expected one detached spawn, got %d", detached)
	}

	hist.mu.Lock()
	defer hist.mu.Unlock()
	if len(hist.recs) != 1 || hist.recs[0].id != "demo:Copy thing" || hist.recs[0].kind != models.KindPlugin {
		t.Errorf("Unexpected history records: %+v", hist.recs)
	}
}

func TestExecuteWithoutCloseKeepsView(t *testing.T) {
	sp := &scriptedSpawner{respond: func(_ context.Context, req Request, _ int) (*execx.Result, error) {
		if req.Step == StepInitial {
			return resultsJSON(t, Response{Type: "results", Results: resultList("item")}), nil
		}
		return resultsJSON(t, Response{Type: "execute", Execute: &Execute{
			Command: CommandLine{"true"},
			Notify:  "Started",
		}}), nil
	}}
	r := newTestRunner(sp, nil)

	r.Enter(testManifest())
	waitResults(t, r.Events())

	r.Select("item")
	if _, ok := waitEvent(t, r.Events()).(ExecutedEvent); !ok {
		t.Fatal("Expected ExecutedEvent for close:false execute")
	}
	if !r.Active() {
		t.Error("Session must survive close:false execute")
	}
}

func TestHandlerFailuresSurfaceAsErrors(t *testing.T) {
	cases := []struct {
		name    string
		respond func(ctx context.Context, req Request, call int) (*execx.Result, error)
	}{
		{"malformed json", func(_ context.Context, req Request, call int) (*execx.Result, error) {
			if call == 0 {
				return resultsJSON(t, Response{Type: "results", Results: resultList("x")}), nil
			}
			return &execx.Result{Stdout: []byte("not json at all")}, nil
		}},
		{"unknown type", func(_ context.Context, req Request, call int) (*execx.Result, error) {
			if call == 0 {
				return resultsJSON(t, Response{Type: "results", Results: resultList("x")}), nil
			}
			return &execx.Result{Stdout: []byte(`{"type":"teleport"}`)}, nil
		}},
		{"non-zero exit", func(_ context.Context, req Request, call int) (*execx.Result, error) {
			if call == 0 {
				return resultsJSON(t, Response{Type: "results", Results: resultList("x")}), nil
			}
			return &execx.Result{ExitCode: 1, Stderr: []byte("boom")}, nil
		}},
		{"timeout", func(_ context.Context, req Request, call int) (*execx.Result, error) {
			if call == 0 {
				return resultsJSON(t, Response{Type: "results", Results: resultList("x")}), nil
			}
			return nil, execx.ErrTimeout
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sp := &scriptedSpawner{respond: tc.respond}
			r := newTestRunner(sp, nil)

			r.Enter(testManifest())
			waitResults(t, r.Events())

			r.Submit("q")
			if _, ok := waitEvent(t, r.Events()).(ErrorEvent); !ok {
				t.Fatal("Expected ErrorEvent")
			}
			if !r.Active() {
				t.Error("Session must stay alive through handler failures")
			}
		})
	}
}

func TestConfirmationFlow(t *testing.T) {
	sp := &scriptedSpawner{respond: func(_ context.Context, req Request, call int) (*execx.Result, error) {
		if call == 0 {
			return resultsJSON(t, Response{Type: "results", Results: resultList("x"),
				PluginActions: []PluginAction{{ID: "wipe", Name: "Wipe all", Confirm: true}}}), nil
		}
		return resultsJSON(t, Response{Type: "results", Results: resultList("wiped")}), nil
	}}
	r := newTestRunner(sp, nil)

	r.Enter(testManifest())
	waitResults(t, r.Events())

	// First press: pending confirmation only, nothing dispatched.
	r.Action("wipe", "")
	if _, ok := waitEvent(t, r.Events()).(ConfirmEvent); !ok {
		t.Fatal("Expected ConfirmEvent for confirm action")
	}
	if sp.requestCount() != 1 {
		t.Fatalf("Confirm action dispatched prematurely")
	}
	if r.PendingConfirm() != "wipe" {
		t.Errorf("Pending confirmation not recorded")
	}

	// Escape cancels without side effects.
	r.CancelConfirm()
	if r.PendingConfirm() != "" {
		t.Error("CancelConfirm left pending state")
	}
	assertNoEvent(t, r.Events(), 30*time.Millisecond)

	// Confirmed on the second press.
	r.Action("wipe", "")
	waitEvent(t, r.Events()) // ConfirmEvent again
	r.Action("wipe", "")
	re := waitResults(t, r.Events())
	if re.Results[0].ID != "wiped" {
		t.Errorf("Confirmed action did not dispatch: %+v", re.Results)
	}
	if got := sp.request(1); got.Action != "wipe" {
		t.Errorf("Unexpected action request: %+v", got)
	}
}

func TestPollingLoopAndDynamicDisable(t *testing.T) {
	interval := 0
	sp := &scriptedSpawner{}
	sp.respond = func(_ context.Context, req Request, call int) (*execx.Result, error) {
		switch req.Step {
		case StepInitial:
			return resultsJSON(t, Response{Type: "results", Results: resultList("cpu1")}), nil
		case StepPoll:
			// Second poll response turns polling off.
			if call >= 2 {
				return resultsJSON(t, Response{Type: "results", Results: resultList("cpu2"), PollInterval: &interval}), nil
			}
			return resultsJSON(t, Response{Type: "results", Results: resultList("cpu2")}), nil
		}
		return resultsJSON(t, Response{Type: "error", Message: "unexpected"}), nil
	}
	r := newTestRunner(sp, nil)

	m := testManifest()
	m.PollInterval = 10
	r.Enter(m)
	waitResults(t, r.Events())

	// Poll refreshes arrive and are flagged so the UI restores selection by id.
	poll := waitResults(t, r.Events())
	if !poll.Poll {
		t.Error("Expected poll flag on poll-driven results")
	}
	if got := sp.request(1); got.Step != StepPoll {
		t.Errorf("Expected poll step, got %+v", got)
	}

	waitResults(t, r.Events()) // second poll, disables polling

	count := sp.requestCount()
	time.Sleep(80 * time.Millisecond)
	if sp.requestCount() != count {
		t.Errorf("Polling continued after pollInterval:0 (%d -> %d)", count, sp.requestCount())
	}
}

func TestExitCancelsOutstandingWork(t *testing.T) {
	release := make(chan struct{})
	sp := &scriptedSpawner{}
	sp.respond = func(_ context.Context, req Request, _ int) (*execx.Result, error) {
		if req.Step == StepInitial {
			return resultsJSON(t, Response{Type: "results", Results: resultList("x")}), nil
		}
		<-release
		return resultsJSON(t, Response{Type: "results", Results: resultList("late")}), nil
	}
	r := newTestRunner(sp, nil)

	r.Enter(testManifest())
	waitResults(t, r.Events())

	r.Submit("slow")
	for sp.requestCount() < 2 {
		time.Sleep(time.Millisecond)
	}
	r.Exit()
	if _, ok := waitEvent(t, r.Events()).(ExitedEvent); !ok {
		t.Fatal("Expected ExitedEvent")
	}

	// The orphaned process result must not reach the torn-down session.
	close(release)
	assertNoEvent(t, r.Events(), 100*time.Millisecond)
	if r.Active() {
		t.Error("Session should remain destroyed")
	}
}
