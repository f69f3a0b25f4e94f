package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordTask appends its name to a shared log when run.
type recordTask struct {
	name string
	err  error
	log  *[]string
	mu   *sync.Mutex
}

func (t *recordTask) Name() string { return t.name }

func (t *recordTask) Run(ctx context.Context, progress func(written, total int64)) error {
	t.mu.Lock()
	*t.log = append(*t.log, t.name)
	t.mu.Unlock()
	return t.err
}

func TestEngine_TasksRunInOrder(t *testing.T) {
	var mu sync.Mutex
	var ran []string

	wf := New("install",
		&recordTask{name: "download", log: &ran, mu: &mu},
		&recordTask{name: "move", log: &ran, mu: &mu},
		&recordTask{name: "register", log: &ran, mu: &mu},
	)

	engine := NewEngine(4, nil)
	engine.Submit(context.Background(), wf)
	engine.Wait()

	want := []string{"download", "move", "register"}
	if len(ran) != len(want) {
		t.Fatalf("ran = %v, want %v", ran, want)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Errorf("ran[%d] = %q, want %q", i, ran[i], want[i])
		}
	}
}

func TestEngine_FailureAbandonsRemainingTasks(t *testing.T) {
	var mu sync.Mutex
	var ran []string
	boom := errors.New("boom")

	wf := New("update",
		&recordTask{name: "download", log: &ran, mu: &mu},
		&recordTask{name: "explode", err: boom, log: &ran, mu: &mu},
		&recordTask{name: "register", log: &ran, mu: &mu},
	)

	var events []Event
	var evMu sync.Mutex

	engine := NewEngine(4, nil)
	engine.AddListener(func(ev Event) {
		evMu.Lock()
		events = append(events, ev)
		evMu.Unlock()
	})
	engine.Submit(context.Background(), wf)
	engine.Wait()

	for _, name := range ran {
		if name == "register" {
			t.Error("task after failure still ran")
		}
	}

	var sawTaskFailed, sawWorkflowFailed bool
	for _, ev := range events {
		if ev.Type == TaskFailed && ev.TaskName == "explode" && errors.Is(ev.Err, boom) {
			sawTaskFailed = true
		}
		if ev.Type == WorkflowFailed {
			sawWorkflowFailed = true
		}
		if ev.Type == WorkflowCompleted {
			t.Error("failed workflow reported completion")
		}
	}
	if !sawTaskFailed || !sawWorkflowFailed {
		t.Errorf("missing failure events: taskFailed=%v workflowFailed=%v", sawTaskFailed, sawWorkflowFailed)
	}
}

func TestEngine_FailureDoesNotAffectOtherWorkflows(t *testing.T) {
	var mu sync.Mutex
	var ran []string

	bad := New("bad", &recordTask{name: "bad-task", err: errors.New("boom"), log: &ran, mu: &mu})
	good := New("good", &recordTask{name: "good-task", log: &ran, mu: &mu})

	completed := map[string]bool{}
	var evMu sync.Mutex

	engine := NewEngine(4, nil)
	engine.AddListener(func(ev Event) {
		if ev.Type == WorkflowCompleted {
			evMu.Lock()
			completed[ev.WorkflowName] = true
			evMu.Unlock()
		}
	})
	engine.Submit(context.Background(), bad)
	engine.Submit(context.Background(), good)
	engine.Wait()

	if !completed["good"] {
		t.Error("unrelated workflow did not complete after another failed")
	}
	if completed["bad"] {
		t.Error("failed workflow reported completion")
	}
}

// blockTask parks until released, tracking peak concurrency.
type blockTask struct {
	current, peak *int32
	release       chan struct{}
}

func (t *blockTask) Name() string { return "block" }

func (t *blockTask) Run(ctx context.Context, progress func(written, total int64)) error {
	n := atomic.AddInt32(t.current, 1)
	for {
		old := atomic.LoadInt32(t.peak)
		if n <= old || atomic.CompareAndSwapInt32(t.peak, old, n) {
			break
		}
	}
	<-t.release
	atomic.AddInt32(t.current, -1)
	return nil
}

func TestEngine_BoundedConcurrency(t *testing.T) {
	var current, peak int32
	release := make(chan struct{})

	engine := NewEngine(2, nil)
	for i := 0; i < 5; i++ {
		engine.Submit(context.Background(), New("wf", &blockTask{current: &current, peak: &peak, release: release}))
	}

	// Give the workers time to reach the semaphore.
	time.Sleep(100 * time.Millisecond)
	close(release)
	engine.Wait()

	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestEngine_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var mu sync.Mutex
	var ran []string

	var failed bool
	var evMu sync.Mutex

	engine := NewEngine(1, nil)
	engine.AddListener(func(ev Event) {
		if ev.Type == WorkflowFailed {
			evMu.Lock()
			failed = true
			evMu.Unlock()
		}
	})
	engine.Submit(ctx, New("cancelled", &recordTask{name: "task", log: &ran, mu: &mu}))
	engine.Wait()

	if len(ran) != 0 {
		t.Errorf("cancelled workflow ran tasks: %v", ran)
	}
	if !failed {
		t.Error("cancelled workflow did not report failure")
	}
}
