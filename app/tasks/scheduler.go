package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karthikrv/districtwatch/app/cfg"
	"github.com/karthikrv/districtwatch/app/database"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler drives the periodic check loop: a global ticker enqueues one
// CheckMovieTask per enabled movie onto a bounded worker pool. A per-movie
// in-flight flag keeps a slow check from overlapping with the next tick's;
// late ticks for a still-running movie are skipped, not queued.
type Scheduler struct {
	config    ConfigReader
	snapshots database.SnapshotRepository
	runs      database.RunRepository
	extractor Extractor
	notifier  Notifier

	interval     time.Duration
	checkTimeout time.Duration
	workerCount  int

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface

	inflightMu sync.Mutex
	inflight   map[string]bool
}

func NewScheduler(config ConfigReader, snapshots database.SnapshotRepository,
	runs database.RunRepository, extractor Extractor, notifier Notifier) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Scheduler{
		config:       config,
		snapshots:    snapshots,
		runs:         runs,
		extractor:    extractor,
		notifier:     notifier,
		interval:     time.Duration(c.CheckInterval) * time.Second,
		checkTimeout: time.Duration(c.CheckTimeout) * time.Second,
		workerCount:  c.WorkerCount,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, 100),
		inflight:     make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueChecks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueChecks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// enqueueChecks reads one consistent snapshot of the enabled movies and
// dispatches a check for each movie not already in flight.
func (s *Scheduler) enqueueChecks() {
	movies, err := s.config.ReadTick()
	if err != nil {
		slog.Error("Failed to read movie configuration for tick", "error", err)
		return
	}
	if len(movies) == 0 {
		slog.Debug("No enabled movies to check")
		return
	}

	slog.Debug("Dispatching check cycle", "movies", len(movies))

	for _, movie := range movies {
		if !s.acquire(movie.ID) {
			slog.Debug("Check still in flight, skipping this tick", "movie", movie.ID)
			continue
		}

		task := NewCheckMovieTask(movie, s.extractor, s.notifier, s.snapshots, s.runs)
		if err := s.EnqueueTask(task); err != nil {
			s.release(movie.ID)
			slog.Warn("Failed to enqueue CheckMovieTask", "movie", movie.ID, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

// executeTask runs one task to completion. Tasks are never requeued on
// failure: the next tick dispatches a fresh check.
func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.checkTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "movie", task.GetMovieID(), "error", err)
	}

	s.finishTask(task)
}

func (s *Scheduler) finishTask(task TaskInterface) {
	if task.GetType() == TaskTypeCheckMovie {
		s.release(task.GetMovieID())
	}
}

func (s *Scheduler) acquire(movieID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()

	if s.inflight[movieID] {
		return false
	}
	s.inflight[movieID] = true
	return true
}

func (s *Scheduler) release(movieID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, movieID)
}
