package casefile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrActionNotFound is returned when an action id is not among a case's available actions.
var ErrActionNotFound = errors.New("action not available")

// ErrCaseNotFound is returned by MemoryStore when a case does not exist.
// Client returns redis.Nil instead; use IsNotFound to check either.
var ErrCaseNotFound = errors.New("case not found")

// ErrPublishFailed is returned alongside the evidence when ExecuteAction committed the
// action but could not announce it. The evidence is stored and should still be recorded.
var ErrPublishFailed = errors.New("evidence event not published")

// maxTxRetries bounds optimistic-lock retries in ExecuteAction.
const maxTxRetries = 5

// Client provides namespace-scoped Redis operations for cases.
// All keys and channels are automatically namespaced.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb       *redis.Client
	namespace string
	caseTTL   time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCaseTTL sets how long case keys live after their last write. Zero disables expiry.
func WithCaseTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.caseTTL = ttl
	}
}

// NewClient creates a new case client for the specified namespace.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - namespace: key namespace (must not be empty)
//
// Returns an error if namespace is empty.
func NewClient(redisOpts *redis.Options, namespace string, opts ...ClientOption) (*Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	c := &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Namespace returns the key namespace this client writes to.
func (c *Client) Namespace() string {
	return c.namespace
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// CreateCase writes a case to Redis, replacing any previous case with the same id.
// Validates the case before writing.
func (c *Client) CreateCase(ctx context.Context, cs *Case) error {
	if err := cs.Validate(); err != nil {
		return fmt.Errorf("invalid case: %w", err)
	}

	hash, err := CaseToHash(cs)
	if err != nil {
		return fmt.Errorf("failed to serialize case: %w", err)
	}

	actions := make(map[string]interface{}, len(cs.Actions))
	order := make([]interface{}, 0, len(cs.Actions))
	for i := range cs.Actions {
		encoded, err := encodeAction(&cs.Actions[i])
		if err != nil {
			return err
		}
		actions[cs.Actions[i].ID] = encoded
		order = append(order, cs.Actions[i].ID)
	}

	evidence := make([]interface{}, 0, len(cs.Evidence))
	for i := range cs.Evidence {
		encoded, err := encodeEvidence(&cs.Evidence[i])
		if err != nil {
			return err
		}
		evidence = append(evidence, encoded)
	}

	keys := caseKeys(c.namespace, cs.ID)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.HSet(ctx, CaseKey(c.namespace, cs.ID), hash)
		if len(actions) > 0 {
			pipe.HSet(ctx, CaseActionsKey(c.namespace, cs.ID), actions)
			pipe.RPush(ctx, CaseActionOrderKey(c.namespace, cs.ID), order...)
		}
		if len(evidence) > 0 {
			pipe.RPush(ctx, CaseEvidenceKey(c.namespace, cs.ID), evidence...)
		}
		c.expire(ctx, pipe, cs.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write case to Redis: %w", err)
	}

	return nil
}

// GetCase retrieves a case with its available actions (in offering order) and evidence.
// Returns (nil, redis.Nil) if the case doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetCase(ctx context.Context, caseID string) (*Case, error) {
	var (
		metaCmd     *redis.MapStringStringCmd
		orderCmd    *redis.StringSliceCmd
		actionsCmd  *redis.MapStringStringCmd
		evidenceCmd *redis.StringSliceCmd
	)

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		metaCmd = pipe.HGetAll(ctx, CaseKey(c.namespace, caseID))
		orderCmd = pipe.LRange(ctx, CaseActionOrderKey(c.namespace, caseID), 0, -1)
		actionsCmd = pipe.HGetAll(ctx, CaseActionsKey(c.namespace, caseID))
		evidenceCmd = pipe.LRange(ctx, CaseEvidenceKey(c.namespace, caseID), 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read case from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(metaCmd.Val()) == 0 {
		return nil, redis.Nil
	}

	cs, err := HashToCase(metaCmd.Val())
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize case: %w", err)
	}

	rawActions := actionsCmd.Val()
	for _, id := range orderCmd.Val() {
		raw, ok := rawActions[id]
		if !ok {
			continue
		}
		action, err := decodeAction(raw)
		if err != nil {
			return nil, err
		}
		cs.Actions = append(cs.Actions, *action)
	}

	for _, raw := range evidenceCmd.Val() {
		e, err := decodeEvidence(raw)
		if err != nil {
			return nil, err
		}
		cs.Evidence = append(cs.Evidence, *e)
	}

	return cs, nil
}

// CaseExists checks if a case exists without fetching it.
func (c *Client) CaseExists(ctx context.Context, caseID string) (bool, error) {
	exists, err := c.rdb.Exists(ctx, CaseKey(c.namespace, caseID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check case existence: %w", err)
	}
	return exists > 0, nil
}

// ExecuteAction takes an available action: the action is removed from availability,
// its evidence is appended to the case history and its cost is added to the case total.
// The update is atomic (WATCH/MULTI); concurrent executions of the same action
// succeed at most once. Publishes an EvidenceEvent after a successful update.
// If only the publish fails, the evidence is returned with an error wrapping ErrPublishFailed.
//
// Returns redis.Nil if the case doesn't exist and ErrActionNotFound if the action is
// not available.
func (c *Client) ExecuteAction(ctx context.Context, caseID, actionID string) (*Evidence, error) {
	caseKey := CaseKey(c.namespace, caseID)
	actionsKey := CaseActionsKey(c.namespace, caseID)

	var evidence *Evidence
	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, caseKey).Result()
		if err != nil {
			return fmt.Errorf("failed to check case existence: %w", err)
		}
		if exists == 0 {
			return redis.Nil
		}

		raw, err := tx.HGet(ctx, actionsKey, actionID).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
		}
		if err != nil {
			return fmt.Errorf("failed to read action: %w", err)
		}

		action, err := decodeAction(raw)
		if err != nil {
			return err
		}
		evidence = action.Reveal(time.Now())
		encoded, err := encodeEvidence(evidence)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, actionsKey, actionID)
			pipe.LRem(ctx, CaseActionOrderKey(c.namespace, caseID), 0, actionID)
			pipe.RPush(ctx, CaseEvidenceKey(c.namespace, caseID), encoded)
			pipe.HIncrBy(ctx, caseKey, "total_cost", int64(action.Cost))
			c.expire(ctx, pipe, caseID)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := c.rdb.Watch(ctx, txf, caseKey, actionsKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if err := c.publishEvidence(ctx, caseID, evidence); err != nil {
			return evidence, fmt.Errorf("%w: %v", ErrPublishFailed, err)
		}
		return evidence, nil
	}

	return nil, fmt.Errorf("failed to execute action %q: case %s is being modified concurrently", actionID, caseID)
}

// DeleteCase removes every key belonging to a case.
// Returns false if the case did not exist.
func (c *Client) DeleteCase(ctx context.Context, caseID string) (bool, error) {
	n, err := c.rdb.Del(ctx, caseKeys(c.namespace, caseID)...).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete case: %w", err)
	}
	return n > 0, nil
}

// ScanCases returns the ids of all cases whose id starts with prefix, sorted.
// An empty prefix lists every case in the namespace.
func (c *Client) ScanCases(ctx context.Context, prefix string) ([]string, error) {
	keyPrefix := CaseKeyPrefix(c.namespace)
	iter := c.rdb.Scan(ctx, 0, keyPrefix+prefix+"*", 100).Iterator()

	seen := make(map[string]bool)
	var ids []string
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), keyPrefix)
		// Facet keys (":actions", ":evidence", ...) share the prefix
		if strings.Contains(id, ":") || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan cases: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}

func (c *Client) expire(ctx context.Context, pipe redis.Pipeliner, caseID string) {
	if c.caseTTL <= 0 {
		return
	}
	for _, key := range caseKeys(c.namespace, caseID) {
		pipe.Expire(ctx, key, c.caseTTL)
	}
}

func (c *Client) publishEvidence(ctx context.Context, caseID string, e *Evidence) error {
	payload, err := json.Marshal(EvidenceEvent{CaseID: caseID, Evidence: *e})
	if err != nil {
		return fmt.Errorf("failed to marshal evidence event: %w", err)
	}

	if err := c.rdb.Publish(ctx, EvidenceEventsChannel(c.namespace), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish evidence event: %w", err)
	}
	return nil
}

// Subscription represents an active Pub/Sub subscription to evidence events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *EvidenceEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of evidence events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *EvidenceEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - malformed messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEvidenceEvents subscribes to evidence events for this namespace.
// The subscription is confirmed by Redis before this method returns, so events
// published afterwards are not missed.
//
// Events are delivered on a buffered channel (size 10). Redis Pub/Sub is
// at-most-once: a slow subscriber may miss events.
func (c *Client) SubscribeEvidenceEvents(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, EvidenceEventsChannel(c.namespace))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to evidence events: %w", err)
	}

	eventsChan := make(chan *EvidenceEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event EvidenceEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal evidence event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error reports a missing case
// (redis.Nil from Client, ErrCaseNotFound from MemoryStore).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil) || errors.Is(err, ErrCaseNotFound)
}
