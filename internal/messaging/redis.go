package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trial-service/internal/logger"
	"trial-service/internal/types"
)

const (
	commandList   = "trial:command"
	stateHash     = "trial"
	stateChannel  = "trial"
	eventsChannel = "trial:events"
)

type Callbacks struct {
	// CommandCallback receives each raw command line pushed by the host.
	CommandCallback func(line string) error
}

// RedisClient is the host link: command lines arrive by BRPOP on the
// command list, state and report lines go out on the trial hash and the
// events channel.
type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		logger: l.WithTag("redis"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetCallbacks installs the command handler. Call before StartListening.
func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Connecting to Redis at %s", r.client.Options().Addr)
	if err := r.client.Ping(r.ctx).Err(); err != nil {
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Connected to Redis")
	return nil
}

// StartListening starts the command list listener. Call after the trial
// system is fully initialized.
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting command listener on %s", commandList)
	r.wg.Add(1)
	go r.commandListener()
	return nil
}

func (r *RedisClient) commandListener() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting command listener")
			return
		default:
			// Short BRPOP timeout so context cancellation is noticed.
			result, err := r.client.BRPop(r.ctx, 5*time.Second, commandList).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if err == context.Canceled {
					return
				}
				r.logger.Warnf("Error reading from %s: %v", commandList, err)
				continue
			}
			if len(result) < 2 { // BRPOP returns [key, value]
				continue
			}

			line := result[1]
			r.logger.Debugf("Received command line: %s", line)
			if r.callbacks.CommandCallback != nil {
				if err := r.callbacks.CommandCallback(line); err != nil {
					r.logger.Warnf("Error handling command %q: %v", line, err)
				}
			}
		}
	}
}

// PublishState atomically updates the state field and notifies listeners.
func (r *RedisClient) PublishState(state types.State) error {
	timestamp := time.Now().Format(time.RFC3339)

	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, stateHash, "state", string(state))
	pipe.HSet(r.ctx, stateHash, "state:timestamp", timestamp)
	pipe.Publish(r.ctx, stateChannel, "state")
	if _, err := pipe.Exec(r.ctx); err != nil {
		r.logger.Warnf("Failed to publish state: %v", err)
		return err
	}

	r.logger.Debugf("Published state %s", state)
	return nil
}

// PublishReportLine forwards one formatted report line to the host.
func (r *RedisClient) PublishReportLine(line string) error {
	if err := r.client.Publish(r.ctx, eventsChannel, line).Err(); err != nil {
		r.logger.Warnf("Failed to publish report line: %v", err)
		return err
	}
	return nil
}

func (r *RedisClient) Close() error {
	r.cancel()
	r.wg.Wait()
	return r.client.Close()
}
