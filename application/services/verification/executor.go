package verification

import (
	"fmt"
	"sync"

	"idgate.io/infrastructure/logger"
)

// Task is one unit of image-analysis work. Run writes its result into the
// slot the submitter owns; OnPanic must install that check's documented
// fault default instead.
type Task struct {
	Name    string
	Run     func()
	OnPanic func(recovered any)
}

type submission struct {
	task Task
	done *sync.WaitGroup
}

// CheckExecutor runs analysis work on a fixed pool of long-lived workers
// consuming one shared queue. Some detection libraries are unsafe under
// concurrent calls from one process, so a single executor with workers=1
// serializes every analysis call that goes through it, across requests, for
// the life of the process. Results are still merged by slot, never by
// completion order.
type CheckExecutor struct {
	workers   int
	queue     chan submission
	closeOnce sync.Once
}

// NewCheckExecutor starts the worker goroutines; they run until Close.
func NewCheckExecutor(workers int) *CheckExecutor {
	if workers < 1 {
		workers = 1
	}
	e := &CheckExecutor{
		workers: workers,
		queue:   make(chan submission),
	}
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	return e
}

// Workers reports the pool size.
func (e *CheckExecutor) Workers() int {
	return e.workers
}

// Run submits every task to the shared pool and waits for the batch to
// complete, individual faults included. A task that panics is recovered,
// logged and handed to its OnPanic hook; it never stops the remaining tasks
// from reporting. Tasks must not submit further work to the same executor.
func (e *CheckExecutor) Run(tasks []Task) {
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, task := range tasks {
		e.queue <- submission{task: task, done: &wg}
	}
	wg.Wait()
}

// Close stops the workers once all submitted work has drained. Safe to call
// more than once; Run must not be called after Close.
func (e *CheckExecutor) Close() {
	e.closeOnce.Do(func() {
		close(e.queue)
	})
}

func (e *CheckExecutor) worker() {
	for sub := range e.queue {
		e.runOne(sub.task)
		sub.done.Done()
	}
}

func (e *CheckExecutor) runOne(task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("check panicked", logger.LoggerOptions{
				Key:  task.Name,
				Data: fmt.Sprintf("%v", r),
			})
			if task.OnPanic != nil {
				task.OnPanic(r)
			}
		}
	}()
	task.Run()
}
