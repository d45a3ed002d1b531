package verification

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestCheckExecutorRunsEveryTask(t *testing.T) {
	executor := NewCheckExecutor(4)
	defer executor.Close()

	var ran int64
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{
			Name: "task",
			Run:  func() { atomic.AddInt64(&ran, 1) },
		}
	}
	executor.Run(tasks)

	if ran != 10 {
		t.Fatalf("expected 10 tasks to run, got %d", ran)
	}
}

func TestCheckExecutorSingleWorkerSerializes(t *testing.T) {
	executor := NewCheckExecutor(1)
	defer executor.Close()

	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	tasks := make([]Task, 6)
	for i := range tasks {
		tasks[i] = Task{
			Name: "task",
			Run: func() {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()

				mu.Lock()
				inFlight--
				mu.Unlock()
			},
		}
	}
	executor.Run(tasks)

	if maxInFlight != 1 {
		t.Fatalf("single worker must serialize tasks, saw %d in flight", maxInFlight)
	}
}

func TestCheckExecutorSingleWorkerSerializesAcrossBatches(t *testing.T) {
	executor := NewCheckExecutor(1)
	defer executor.Close()

	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0
	track := func() {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		mu.Lock()
		inFlight--
		mu.Unlock()
	}

	// two callers sharing one pool, as concurrent requests share the
	// process-wide executor
	var callers sync.WaitGroup
	for c := 0; c < 2; c++ {
		callers.Add(1)
		go func() {
			defer callers.Done()
			tasks := make([]Task, 4)
			for i := range tasks {
				tasks[i] = Task{Name: "task", Run: track}
			}
			executor.Run(tasks)
		}()
	}
	callers.Wait()

	if maxInFlight != 1 {
		t.Fatalf("single worker must serialize tasks across callers, saw %d in flight", maxInFlight)
	}
}

func TestCheckExecutorCloseIsIdempotent(t *testing.T) {
	executor := NewCheckExecutor(2)
	executor.Run([]Task{{Name: "task", Run: func() {}}})
	executor.Close()
	executor.Close()
}

func TestCheckExecutorPanicInvokesHookAndContinues(t *testing.T) {
	executor := NewCheckExecutor(1)
	defer executor.Close()

	var recovered any
	var survivorRan bool
	executor.Run([]Task{
		{
			Name:    "boom",
			Run:     func() { panic("boom") },
			OnPanic: func(r any) { recovered = r },
		},
		{
			Name: "survivor",
			Run:  func() { survivorRan = true },
		},
	})

	if recovered != "boom" {
		t.Errorf("OnPanic should receive the recovered value, got %v", recovered)
	}
	if !survivorRan {
		t.Error("a panicking task must not stop the remaining tasks")
	}
}

func TestNewCheckExecutorClampsWorkers(t *testing.T) {
	if got := NewCheckExecutor(0).Workers(); got != 1 {
		t.Errorf("workers clamped to 1, got %d", got)
	}
	if got := NewCheckExecutor(-3).Workers(); got != 1 {
		t.Errorf("workers clamped to 1, got %d", got)
	}
	if got := NewCheckExecutor(4).Workers(); got != 4 {
		t.Errorf("workers preserved, got %d", got)
	}
}
