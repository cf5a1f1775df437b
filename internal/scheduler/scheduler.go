package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("mplxls.scheduler")

type Task struct {
	Name    string
	Execute func(ctx context.Context) error
}

// Scheduler runs three kinds of work: queued tasks on a single worker,
// periodic low-priority tasks, and keyed tasks where a newer task for a
// key cancels and replaces the older one.
type Scheduler struct {
	taskQueue       chan Task
	lowPriorityLock sync.Mutex
	stopChan        chan struct{}
	wg              sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	keyed   map[string]*keyedRun
	locks   map[string]*sync.Mutex
	seq     uint64
}

type keyedRun struct {
	seq    uint64
	cancel context.CancelFunc
	timer  *time.Timer
}

// NewScheduler creates a new Scheduler with the specified queue size.
func NewScheduler(queueSize int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		taskQueue: make(chan Task, queueSize),
		stopChan:  make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		keyed:     make(map[string]*keyedRun),
		locks:     make(map[string]*sync.Mutex),
	}
}

// RunScheduler starts the worker for queued tasks.
func (s *Scheduler) RunScheduler() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case task := <-s.taskQueue:
				s.execute(s.ctx, task)
			case <-s.stopChan:
				for {
					select {
					case task := <-s.taskQueue:
						log.Debugf("draining task: %s", task.Name)
						s.execute(s.ctx, task)
					default:
						return
					}
				}
			}
		}
	}()
}

func (s *Scheduler) execute(ctx context.Context, task Task) {
	log.Debugf("executing %s", task.Name)
	if err := task.Execute(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Warningf("task %s failed: %s", task.Name, err)
	}
}

// SchedulePeriodicTask runs task now and then every interval. A tick that
// arrives while the previous run is still going is skipped.
func (s *Scheduler) SchedulePeriodicTask(interval time.Duration, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		run := func() {
			if !s.lowPriorityLock.TryLock() {
				log.Debugf("skipped %s, previous run still busy", task.Name)
				return
			}
			defer s.lowPriorityLock.Unlock()
			s.execute(s.ctx, task)
		}

		run()
		for {
			select {
			case <-ticker.C:
				run()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// ScheduleHighPriorityTask queues task for the worker. It reports false
// when the scheduler is stopped or the queue is full.
func (s *Scheduler) ScheduleHighPriorityTask(task Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	select {
	case s.taskQueue <- task:
		return true
	default:
		log.Warningf("skipped %s, queue is full", task.Name)
		return false
	}
}

// ScheduleKeyed runs task after delay, replacing any pending or running
// task with the same key: the older task's context is cancelled. Tasks for
// one key never run concurrently.
func (s *Scheduler) ScheduleKeyed(key string, delay time.Duration, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	s.cancelLocked(key)

	s.seq++
	ctx, cancel := context.WithCancel(s.ctx)
	run := &keyedRun{seq: s.seq, cancel: cancel}
	s.keyed[key] = run
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}

	s.wg.Add(1)
	start := func() {
		defer s.wg.Done()
		defer s.finish(key, run)

		lock.Lock()
		defer lock.Unlock()
		if ctx.Err() != nil {
			return
		}
		s.execute(ctx, task)
	}

	if delay <= 0 {
		go start()
		return
	}
	run.timer = time.AfterFunc(delay, start)
}

// Cancel cancels the pending or running task for key, if any.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(key)
}

func (s *Scheduler) cancelLocked(key string) {
	prev, ok := s.keyed[key]
	if !ok {
		return
	}
	prev.cancel()
	if prev.timer != nil && prev.timer.Stop() {
		// the timer never fired, so start will not release the wait group
		s.wg.Done()
	}
	delete(s.keyed, key)
}

func (s *Scheduler) finish(key string, run *keyedRun) {
	run.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.keyed[key]
	if ok && current.seq != run.seq {
		return
	}
	delete(s.keyed, key)
	delete(s.locks, key)
}

// Pending is the number of keyed tasks not yet finished.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keyed)
}

// StopScheduler cancels keyed tasks, runs what is left in the queue and
// waits for every goroutine to finish.
func (s *Scheduler) StopScheduler() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	log.Info("stopping scheduler")
	s.stopped = true
	for key := range s.keyed {
		s.cancelLocked(key)
	}
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()
	log.Info("scheduler stopped")
}
