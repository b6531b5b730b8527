package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"hbs/src/types"

	"github.com/redis/go-redis/v9"
)

const (
	TaskDispatch       = "dispatch"
	TaskPaymentEvent   = "payment_event"
	TaskInboundMessage = "inbound_message"

	backlogKey    = "hbs:dispatch:backlog"
	deadLetterKey = "hbs:dispatch:dead"
)

// Task is one unit of asynchronous work handed off by a webhook handler
// or a reconciliation pass. Handlers enqueue and return; they never await
// completion.
type Task struct {
	Kind string `json:"kind"`

	// dispatch tasks
	ReservationID    uint                   `json:"reservation_id,omitempty"`
	NotificationType types.NotificationType `json:"notification_type,omitempty"`

	// payment events carry the raw provider payload
	Payload json.RawMessage `json:"payload,omitempty"`

	// inbound messages
	OrganizationID uint   `json:"organization_id,omitempty"`
	BranchID       *uint  `json:"branch_id,omitempty"`
	From           string `json:"from,omitempty"`
	Text           string `json:"text,omitempty"`
	ProfileName    string `json:"profile_name,omitempty"`

	Attempt int `json:"attempt,omitempty"`
}

// Handler executes one task. A returned error triggers the retry policy.
type Handler func(ctx context.Context, task Task) error

// Pool is a bounded in-process queue with a redis backlog: when the
// channel is full, tasks spill to a redis list so a webhook handler never
// blocks. Exhausted retries land in a dead-letter list.
type Pool struct {
	queue   chan Task
	redis   *redis.Client
	handler Handler
	retry   RetryPolicy
	workers int
	poll    time.Duration
}

func NewPool(rdb *redis.Client, handler Handler, retry RetryPolicy) *Pool {
	return &Pool{
		queue:   make(chan Task, 256),
		redis:   rdb,
		handler: handler,
		retry:   retry,
		workers: 4,
		poll:    2 * time.Second,
	}
}

// Enqueue never blocks: a full channel spills to the redis backlog.
func (p *Pool) Enqueue(ctx context.Context, task Task) error {
	select {
	case p.queue <- task:
		return nil
	default:
	}
	if p.redis == nil {
		return errors.New("dispatch queue full and no backlog configured")
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := p.redis.RPush(ctx, backlogKey, body).Err(); err != nil {
		return err
	}
	log.Printf("[Worker] queue full, task spilled to backlog kind=%s\n", task.Kind)
	return nil
}

func (p *Pool) Run(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx)
	}
	if p.redis != nil {
		go p.drainBacklog(ctx)
	}
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.queue:
			p.execute(ctx, task)
		}
	}
}

func (p *Pool) execute(ctx context.Context, task Task) {
	for attempt := 1; ; attempt++ {
		err := p.handler(ctx, task)
		if err == nil {
			return
		}
		if attempt > p.retry.MaxRetries {
			log.Printf("[Worker] task %s exhausted retries: %s\n", task.Kind, err.Error())
			p.deadLetter(ctx, task, err)
			return
		}
		delay := p.retry.NextDelay(attempt)
		log.Printf("[Worker] task %s attempt %d failed, retrying in %s: %s\n", task.Kind, attempt, delay, err.Error())
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (p *Pool) deadLetter(ctx context.Context, task Task, cause error) {
	if p.redis == nil {
		return
	}
	task.Attempt = p.retry.MaxRetries
	body, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := p.redis.RPush(ctx, deadLetterKey, body).Err(); err != nil {
		log.Printf("[Worker] failed to record dead letter: %s\n", err.Error())
		return
	}
	log.Printf("[Worker] dead-lettered %s task: %s\n", task.Kind, cause.Error())
}

func (p *Pool) drainBacklog(ctx context.Context) {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	drain:
		for {
			body, err := p.redis.LPop(ctx, backlogKey).Bytes()
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					log.Printf("[Worker] backlog read error: %s\n", err.Error())
				}
				break
			}
			var task Task
			if err := json.Unmarshal(body, &task); err != nil {
				log.Printf("[Worker] dropping malformed backlog entry: %s\n", err.Error())
				continue
			}
			select {
			case p.queue <- task:
			default:
				// channel filled back up, push it back and wait for the
				// next tick
				if err := p.redis.LPush(ctx, backlogKey, body).Err(); err != nil {
					log.Printf("[Worker] failed to requeue backlog entry: %s\n", err.Error())
				}
				break drain
			}
		}
	}
}

// DeadLetters returns up to limit entries from the dead-letter list
// without removing them. Operator surfaces read this for diagnostics.
func (p *Pool) DeadLetters(ctx context.Context, limit int64) ([]Task, error) {
	if p.redis == nil {
		return nil, nil
	}
	bodies, err := p.redis.LRange(ctx, deadLetterKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(bodies))
	for _, body := range bodies {
		var task Task
		if err := json.Unmarshal([]byte(body), &task); err != nil {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
