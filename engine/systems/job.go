package systems

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/instancer/engine/core"
)

// Job is a unit of background work, typically an asset decode.
type Job struct {
	Name string
	Run  func() error
	// OnFailure is called with the error returned by Run, if any.
	OnFailure func(err error)
	// OnComplete is called when Run succeeded.
	OnComplete func()
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan Job
	wg         sync.WaitGroup
	pending    sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, channelSize),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job Job) {
	defer js.pending.Done()
	if err := job.Run(); err != nil {
		core.LogError("job %s failed: %s", job.Name, err)
		js.mu.Lock()
		js.errs = append(js.errs, fmt.Errorf("%s: %w", job.Name, err))
		js.mu.Unlock()
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete()
	}
}

/**
 * @brief Submits the provided job to be queued for execution.
 * Blocks while the queue is full.
 */
func (js *JobSystem) Submit(job Job) {
	js.pending.Add(1)
	js.jobQueue <- job
}

/**
 * @brief Waits for every submitted job and returns their joined errors.
 * The error list is reset afterwards.
 */
func (js *JobSystem) Wait() error {
	js.pending.Wait()
	js.mu.Lock()
	defer js.mu.Unlock()
	err := errors.Join(js.errs...)
	js.errs = nil
	return err
}

/**
 * @brief Shuts the job system down.
 */
func (js *JobSystem) Shutdown() error {
	close(js.jobQueue)
	js.wg.Wait()
	return nil
}
