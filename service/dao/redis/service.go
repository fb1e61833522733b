// Package redis implements a JSON entity store on Redis keys of the form <prefix><id>.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/dao/criteria"
)

const scanCount = 100

// Service stores entities as JSON strings.
type Service[T any] struct {
	client   goredis.UniversalClient
	prefix   string
	accessor *dao.Accessor[string, T]
}

// Save persists an entity.
func (s *Service[T]) Save(ctx context.Context, entity *T) error {
	if entity == nil {
		return dao.ErrNilEntity
	}
	id := s.accessor.Key(entity)
	if id == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}
	if err = s.client.Set(ctx, s.prefix+id, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", id, err)
	}
	return nil
}

// Load retrieves an entity or dao.ErrNotFound.
func (s *Service[T]) Load(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, dao.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load %s: %w", id, err)
	}
	var entity T
	if err = json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}
	return &entity, nil
}

// Delete removes an entity.
func (s *Service[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	removed, err := s.client.Del(ctx, s.prefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	if removed == 0 {
		return dao.ErrNotFound
	}
	return nil
}

// List scans the key prefix and returns the entities matching parameters.
func (s *Service[T]) List(ctx context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.prefix, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.prefix, err)
	}
	var entities []*T
	for _, value := range values {
		text, ok := value.(string)
		if !ok {
			continue
		}
		var entity T
		if err := json.Unmarshal([]byte(text), &entity); err != nil {
			continue
		}
		entities = append(entities, &entity)
	}
	entities = criteria.Filter(s.accessor, entities, parameters)
	if s.accessor.Less != nil {
		sort.SliceStable(entities, func(i, j int) bool { return s.accessor.Less(entities[i], entities[j]) })
	}
	return entities, nil
}

// New creates a store over client; prefix namespaces the entity keys.
func New[T any](client goredis.UniversalClient, prefix string, accessor *dao.Accessor[string, T]) *Service[T] {
	return &Service[T]{client: client, prefix: prefix, accessor: accessor}
}

// NewClient connects to addr and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (goredis.UniversalClient, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", addr, err)
	}
	return client, nil
}
