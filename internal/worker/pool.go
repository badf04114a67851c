package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueClosingReport = "jobs:closing_report"

	JobClosingReport = "closing_report"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	// Attempts counts the handler runs made by the worker that dead-lettered it.
	Attempts int `json:"attempts,omitempty"`
}

// JobHandler processes one job payload. A returned error moves the job to the
// dead letter queue.
type JobHandler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueClosingReport asks the pool to render and mail the report of a
// closed session.
func (d *Dispatcher) EnqueueClosingReport(ctx context.Context, sessionID int64) error {
	return d.enqueue(ctx, QueueClosingReport, JobClosingReport, ClosingReportPayload{SessionID: sessionID})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes the job queues with a fixed number of goroutines.
type Pool struct {
	rdb      *redis.Client
	size     int
	handlers map[string]JobHandler
	queues   []string
}

func NewPool(rdb *redis.Client, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{rdb: rdb, size: size, handlers: make(map[string]JobHandler)}
}

// Handle registers h for jobType jobs popped from queue.
func (p *Pool) Handle(queue, jobType string, h JobHandler) {
	p.handlers[jobType] = h
	for _, q := range p.queues {
		if q == queue {
			return
		}
	}
	p.queues = append(p.queues, queue)
}

// Start launches the workers. Each goroutine blocks on BRPOP, so idle workers
// cost no CPU. The returned WaitGroup is done once ctx is cancelled and every
// in-flight job has finished.
func (p *Pool) Start(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Int("workers", p.size).Strs("queues", p.queues).Msg("worker pool started")
	return &wg
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
		}

		// Blocking pop, waits up to 5s then loops to check ctx
		result, err := p.rdb.BRPop(ctx, 5*time.Second, p.queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("worker: BRPOP failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		p.process(ctx, result[0], result[1])
	}
}

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Str("queue", queue).Str("type", job.Type).Msg("no handler for job type")
		sendToDLQ(ctx, p.rdb, queue, job, "no handler registered")
		return
	}

	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("processing job")
	if err := h.Process(ctx, job.Payload); err != nil {
		job.Attempts = attemptsOf(err)
		sendToDLQ(ctx, p.rdb, queue, job, err.Error())
	}
}
