package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"fluidasr/internal/models"
	"fluidasr/internal/storage"
)

const maxRetries = 3

// JobHandler processes a single queued job and returns its transcript text.
type JobHandler func(ctx context.Context, job *models.ProcessingJob) (string, error)

// Worker polls the job queue and dispatches jobs to registered handlers.
type Worker struct {
	jobRepo  *storage.JobRepository
	handlers map[string]JobHandler
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
}

// NewWorker creates a new worker polling jobRepo.
func NewWorker(jobRepo *storage.JobRepository) *Worker {
	return &Worker{
		jobRepo:  jobRepo,
		handlers: make(map[string]JobHandler),
		interval: 1 * time.Second,
		stop:     make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a job type.
func (w *Worker) RegisterHandler(jobType string, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// SetInterval sets the polling interval.
func (w *Worker) SetInterval(interval time.Duration) {
	w.interval = interval
}

// Start begins processing jobs in a background goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	log.Println("worker started")
}

// Stop gracefully stops the worker, waiting for the current poll to finish.
func (w *Worker) Stop() {
	close(w.stop)
	w.wg.Wait()
	log.Println("worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.processNextJob(ctx)
		}
	}
}

func (w *Worker) processNextJob(ctx context.Context) {
	job, err := w.jobRepo.GetNextQueued(ctx)
	if err != nil {
		log.Printf("error getting next job: %v", err)
		return
	}
	if job == nil {
		return
	}

	w.mu.RLock()
	handler, ok := w.handlers[job.Type]
	w.mu.RUnlock()

	if !ok {
		log.Printf("no handler for job type: %s", job.Type)
		_ = w.jobRepo.Fail(ctx, job.ID, "no handler registered for job type: "+job.Type)
		return
	}

	if err := w.jobRepo.Start(ctx, job.ID); err != nil {
		log.Printf("error starting job %s: %v", job.ID, err)
		return
	}

	log.Printf("processing job %s (type: %s)", job.ID, job.Type)

	resultText, err := handler(ctx, job)
	if err != nil {
		log.Printf("job %s failed: %v", job.ID, err)
		w.handleJobFailure(ctx, job, err)
		return
	}

	if err := w.jobRepo.Complete(ctx, job.ID, resultText); err != nil {
		log.Printf("error completing job %s: %v", job.ID, err)
		return
	}

	log.Printf("job %s completed", job.ID)
}

func (w *Worker) handleJobFailure(ctx context.Context, job *models.ProcessingJob, jobErr error) {
	if job.RetryCount < maxRetries {
		if err := w.jobRepo.Retry(ctx, job.ID); err != nil {
			log.Printf("error retrying job %s: %v", job.ID, err)
		} else {
			log.Printf("job %s queued for retry (attempt %d/%d)", job.ID, job.RetryCount+1, maxRetries)
		}
		return
	}

	if err := w.jobRepo.Fail(ctx, job.ID, jobErr.Error()); err != nil {
		log.Printf("error failing job %s: %v", job.ID, err)
	}
}

// SubmitJob creates a new job and adds it to the queue. audioPath is the
// on-disk location of the raw 16kHz mono float32 audio the job will decode.
func (w *Worker) SubmitJob(ctx context.Context, jobType, sourceID, audioPath string, priority int) (*models.ProcessingJob, error) {
	job := &models.ProcessingJob{
		Type:      jobType,
		SourceID:  sourceID,
		AudioPath: audioPath,
		Priority:  priority,
	}

	if err := w.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	log.Printf("job %s submitted (type: %s, priority: %d)", job.ID, jobType, priority)
	return job, nil
}
