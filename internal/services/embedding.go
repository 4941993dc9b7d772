package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"ragcorpus/internal/models"
)

/*
EMBEDDING WORKER POOL

Provider calls are the only network I/O in the engine, so they go through a
fixed-size worker pool:

- Caps concurrent OpenAI calls across overlapping ingestions (rate limits)
- Bounded queue gives backpressure instead of unbounded goroutines
- Request/reply jobs keep ingestion synchronous: AddFile submits a batch and
  waits for its vectors, so the all-or-nothing ingestion contract holds

The pool implements Embedder itself, wrapping the real provider - callers
cannot tell the difference.
*/

type embedResult struct {
	vectors [][]float32
	err     error
}

// poolShutdownError classifies a batch lost to pool shutdown as a transient
// provider failure: the texts are fine, retrying against a healthy pool
// would succeed.
func poolShutdownError() error {
	return &models.ProviderError{
		Op:        "embed",
		Transient: true,
		Err:       errors.New("embedding pool is shutting down"),
	}
}

type embedJob struct {
	ctx   context.Context
	texts []string
	reply chan embedResult
}

// EmbeddingPool fans embedding batches out to a fixed set of workers.
type EmbeddingPool struct {
	provider Embedder

	jobs    chan embedJob
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewEmbeddingPool creates the pool without starting it.
func NewEmbeddingPool(provider Embedder, numWorkers, queueSize int) *EmbeddingPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &EmbeddingPool{
		provider: provider,
		jobs:     make(chan embedJob, queueSize),
		workers:  numWorkers,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start spawns the worker goroutines.
func (p *EmbeddingPool) Start() {
	log.Printf("🔧 Starting embedding worker pool with %d workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Println("✓ Embedding worker pool started")
}

func (p *EmbeddingPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			log.Printf("  Embedding worker %d shutting down", id)
			return

		case job := <-p.jobs:
			vectors, err := p.provider.EmbedBatch(job.ctx, job.texts)
			// reply is buffered, the send never blocks even if the
			// submitter already gave up on its context.
			job.reply <- embedResult{vectors: vectors, err: err}
		}
	}
}

// EmbedBatch queues one batch and waits for its vectors. Blocks when the
// queue is full (backpressure); fails if the caller's context ends or the
// pool shuts down first.
func (p *EmbeddingPool) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	job := embedJob{ctx: ctx, texts: texts, reply: make(chan embedResult, 1)}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, poolShutdownError()
	}

	select {
	case res := <-job.reply:
		return res.vectors, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, poolShutdownError()
	}
}

// Dimension returns the wrapped provider's fixed vector size.
func (p *EmbeddingPool) Dimension() int {
	return p.provider.Dimension()
}

// QueueLength returns the number of pending batches.
func (p *EmbeddingPool) QueueLength() int {
	return len(p.jobs)
}

// Shutdown stops the workers and waits for in-flight batches to finish.
// Queued-but-unstarted jobs fail with a shutdown error at the submitter.
func (p *EmbeddingPool) Shutdown() {
	log.Println("🛑 Shutting down embedding pool...")

	p.cancel()
	p.wg.Wait()

	log.Println("✓ Embedding pool shutdown complete")
}
