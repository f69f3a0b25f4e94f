package workflow

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// EventType identifies a workflow lifecycle event.
type EventType int

const (
	TaskStarted EventType = iota
	TaskProgress
	TaskCompleted
	TaskFailed
	WorkflowCompleted
	WorkflowFailed
)

// Event is one lifecycle notification pushed to engine listeners.
type Event struct {
	Type         EventType
	WorkflowID   string
	WorkflowName string
	TaskName     string

	// Written/Total carry download progress for TaskProgress events.
	Written int64
	Total   int64

	// Err is set on TaskFailed and WorkflowFailed events.
	Err error
}

// Listener receives workflow events. Listeners are invoked from the
// workflow's own goroutine, so a slow listener delays only its own
// workflow; the engine does not serialize listeners across workflows.
type Listener func(Event)

// Workflow is a named, ordered list of tasks. Tasks within one
// workflow run strictly in order because later tasks depend on the
// success of earlier ones.
type Workflow struct {
	ID    string
	Name  string
	Tasks []Task
}

// New creates a workflow with a generated id.
func New(name string, tasks ...Task) *Workflow {
	return &Workflow{
		ID:    uuid.NewString(),
		Name:  name,
		Tasks: tasks,
	}
}

// Engine executes workflows with bounded concurrency.
//
// Submission is non-blocking: Submit returns immediately and the
// workflow runs as soon as one of the worker slots is free. Tasks
// within a workflow are sequential; no ordering holds across
// workflows, and the failure of one workflow has no effect on others.
type Engine struct {
	sem *semaphore.Weighted
	log *log.Logger

	mu        sync.Mutex
	listeners []Listener

	wg sync.WaitGroup
}

// NewEngine creates an engine running at most limit workflows
// concurrently.
func NewEngine(limit int, logger *log.Logger) *Engine {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		sem: semaphore.NewWeighted(int64(limit)),
		log: logger,
	}
}

// AddListener registers a listener for all subsequent events.
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Submit queues a workflow for execution and returns immediately.
//
// Cancelling ctx before the workflow starts abandons it; a task
// already running is allowed to observe the cancellation at its next
// suspension point rather than being forcibly interrupted.
func (e *Engine) Submit(ctx context.Context, wf *Workflow) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		if err := e.sem.Acquire(ctx, 1); err != nil {
			e.emit(Event{Type: WorkflowFailed, WorkflowID: wf.ID, WorkflowName: wf.Name, Err: err})
			return
		}
		defer e.sem.Release(1)

		e.run(ctx, wf)
	}()
}

// Wait blocks until every submitted workflow has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context, wf *Workflow) {
	for _, task := range wf.Tasks {
		if err := ctx.Err(); err != nil {
			e.failWorkflow(wf, task.Name(), err)
			return
		}

		e.emit(Event{Type: TaskStarted, WorkflowID: wf.ID, WorkflowName: wf.Name, TaskName: task.Name()})
		e.log.Debug("task started", "workflow", wf.Name, "task", task.Name())

		progress := func(written, total int64) {
			e.emit(Event{
				Type:         TaskProgress,
				WorkflowID:   wf.ID,
				WorkflowName: wf.Name,
				TaskName:     task.Name(),
				Written:      written,
				Total:        total,
			})
		}

		if err := task.Run(ctx, progress); err != nil {
			e.emit(Event{Type: TaskFailed, WorkflowID: wf.ID, WorkflowName: wf.Name, TaskName: task.Name(), Err: err})
			e.failWorkflow(wf, task.Name(), err)
			return
		}

		e.emit(Event{Type: TaskCompleted, WorkflowID: wf.ID, WorkflowName: wf.Name, TaskName: task.Name()})
	}

	e.emit(Event{Type: WorkflowCompleted, WorkflowID: wf.ID, WorkflowName: wf.Name})
	e.log.Info("workflow completed", "workflow", wf.Name)
}

// failWorkflow abandons the remaining tasks. Already-completed tasks
// are not rolled back; there is no transactional undo.
func (e *Engine) failWorkflow(wf *Workflow, taskName string, err error) {
	e.log.Warn("workflow failed", "workflow", wf.Name, "task", taskName, "err", err)
	e.emit(Event{Type: WorkflowFailed, WorkflowID: wf.ID, WorkflowName: wf.Name, TaskName: taskName, Err: err})
}

func (e *Engine) emit(event Event) {
	e.mu.Lock()
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	for _, l := range listeners {
		l(event)
	}
}
