package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/opsagent/service/messaging"
)

// State of a message file.
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// ErrProcessed is returned on a second Ack or Nack.
var ErrProcessed = errors.New("message already processed")

// Message is a queue entry persisted as one JSON file.
type Message[T any] struct {
	ID        string    `json:"id"`
	Data      T         `json:"data"`
	State     State     `json:"state"`
	Error     string    `json:"error,omitempty"`
	Retries   int       `json:"retries"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	name      string
	queue     *Queue[T]
	mu        sync.Mutex
	processed bool
}

// T returns the message payload.
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack records the message as completed.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return ErrProcessed
	}
	m.processed = true
	m.State = StateCompleted
	m.UpdatedAt = time.Now()
	if !m.queue.config.KeepCompleted {
		return nil
	}
	return m.queue.write(context.Background(), m.queue.completedDir, m.name, m)
}

// Nack returns the message to pending, or to the failed directory once its
// retries are exhausted.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return ErrProcessed
	}
	m.processed = true
	if err != nil {
		m.Error = err.Error()
	}
	m.UpdatedAt = time.Now()
	if m.Retries >= m.queue.config.MaxRetries {
		m.State = StateFailed
		return m.queue.write(context.Background(), m.queue.failedDir, m.name, m)
	}
	m.Retries++
	m.State = StatePending
	return m.queue.write(context.Background(), m.queue.pendingDir, m.name, m)
}

// Config for the filesystem queue.
type Config struct {
	BaseURL       string
	MaxRetries    int
	KeepCompleted bool
}

// DefaultConfig returns a queue rooted under the system temp location.
func DefaultConfig(name string) Config {
	return Config{
		BaseURL:    url.Join("/tmp/opsagent/queue", name),
		MaxRetries: 3,
	}
}

// Queue is a messaging.Queue over any afs storage. Consume takes the oldest
// pending file by name, so file names start with the publish time.
type Queue[T any] struct {
	fs           afs.Service
	config       Config
	pendingDir   string
	completedDir string
	failedDir    string
	mu           sync.Mutex
}

// NewQueue creates the queue directories when missing.
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("queue base URL was empty")
	}
	q := &Queue[T]{
		fs:           fs,
		config:       config,
		pendingDir:   url.Join(config.BaseURL, string(StatePending)),
		completedDir: url.Join(config.BaseURL, string(StateCompleted)),
		failedDir:    url.Join(config.BaseURL, string(StateFailed)),
	}
	ctx := context.Background()
	for _, dir := range []string{q.pendingDir, q.completedDir, q.failedDir} {
		if ok, _ := fs.Exists(ctx, dir); ok {
			continue
		}
		if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create queue directory %s: %w", dir, err)
		}
	}
	return q, nil
}

// Publish writes a pending message file.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	now := time.Now()
	message := &Message[T]{
		ID:        uuid.New().String(),
		Data:      *t,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	name := fmt.Sprintf("%020d-%s.json", now.UnixNano(), message.ID)
	return q.write(ctx, q.pendingDir, name, message)
}

// Consume removes and returns the oldest pending message.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	objects, err := q.fs.List(ctx, q.pendingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}
	var names []string
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			names = append(names, object.Name())
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	sort.Strings(names)
	URL := url.Join(q.pendingDir, names[0])
	data, err := q.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", URL, err)
	}
	if err = q.fs.Delete(ctx, URL); err != nil {
		return nil, fmt.Errorf("failed to remove message %s: %w", URL, err)
	}
	message := &Message[T]{}
	if err = json.Unmarshal(data, message); err != nil {
		_ = q.fs.Upload(ctx, url.Join(q.failedDir, names[0]), file.DefaultFileOsMode, bytes.NewReader(data))
		return nil, fmt.Errorf("failed to decode message %s: %w", URL, err)
	}
	message.name = names[0]
	message.queue = q
	return message, nil
}

// Count returns the number of message files in the given state.
func (q *Queue[T]) Count(ctx context.Context, state State) (int, error) {
	objects, err := q.fs.List(ctx, url.Join(q.config.BaseURL, string(state)))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			count++
		}
	}
	return count, nil
}

func (q *Queue[T]) write(ctx context.Context, dir, name string, message *Message[T]) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message %s: %w", message.ID, err)
	}
	if err = q.fs.Upload(ctx, url.Join(dir, name), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write message %s: %w", message.ID, err)
	}
	return nil
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
