package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/codearena/arena-go-api/internal/observability"
)

// ErrQueueFull indicates the judge queue is saturated and the submission was
// not scheduled.
var ErrQueueFull = errors.New("judge queue is full")

// JudgeFunc judges one submission to a terminal state.
type JudgeFunc func(ctx context.Context, submissionID uint)

// Pool is a bounded judging pool: a fixed number of workers consume a bounded
// queue, so the number of concurrently judging submissions can never exceed
// the worker count and intake gets backpressure instead of unbounded fan-out.
type Pool struct {
	queue     chan uint
	judge     JudgeFunc
	workers   int
	logger    zerolog.Logger
	wg        sync.WaitGroup
	startOnce sync.Once
}

// NewPool constructs a judging pool with the given worker count and queue capacity.
func NewPool(workers, queueSize int, judge JudgeFunc, logger zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}

	return &Pool{
		queue:   make(chan uint, queueSize),
		judge:   judge,
		workers: workers,
		logger:  logger.With().Str("component", "judge_pool").Logger(),
	}
}

// Start launches the workers. Cancelling the context stops them from taking
// new work; a judgement already in flight runs to completion so an ordinary
// shutdown never turns it into a spurious Runtime Error. Wait blocks until
// all in-flight judgements finish.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.run(ctx, i)
		}
		p.logger.Info().Int("workers", p.workers).Int("queue_capacity", cap(p.queue)).Msg("judge pool started")
	})
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case submissionID := <-p.queue:
			observability.JudgeQueueDepth().Dec()
			p.logger.Debug().Int("worker", id).Uint("submission_id", submissionID).Msg("judging submission")
			// The pool context only governs dequeueing. The judgement itself
			// must survive shutdown, bounded by the sandbox time limits.
			p.judge(context.WithoutCancel(ctx), submissionID)
		}
	}
}

// Enqueue schedules a submission for judging. It fails fast with ErrQueueFull
// when the queue is saturated rather than blocking intake.
func (p *Pool) Enqueue(submissionID uint) error {
	select {
	case p.queue <- submissionID:
		observability.JudgeQueueDepth().Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Wait blocks until all workers have stopped. Call after cancelling the
// context passed to Start.
func (p *Pool) Wait() {
	p.wg.Wait()
}
