// Package fs implements a JSON file store on top of viant/afs; any afs
// supported URL scheme (file, mem, s3, gs) can back it.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/opsagent/internal/logging"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/dao/criteria"
)

// Service implements a filesystem-based entity storage
type Service[T any] struct {
	basePath string
	fs       afs.Service
	accessor *dao.Accessor[string, T]
	mu       sync.RWMutex
}

// Save persists an entity to the filesystem
func (s *Service[T]) Save(ctx context.Context, entity *T) error {
	if entity == nil {
		return dao.ErrNilEntity
	}
	id := s.accessor.Key(entity)
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}
	filePath := s.entityPath(id)
	if err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save %s to file %s: %w", id, filePath, err)
	}
	return nil
}

// Load retrieves an entity from the filesystem
func (s *Service[T]) Load(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	filePath := s.entityPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if %s exists: %w", id, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	var entity T
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", filePath, err)
	}
	return &entity, nil
}

// Delete removes an entity from the filesystem
func (s *Service[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	filePath := s.entityPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check if %s exists: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete %s: %w", filePath, err)
	}
	return nil
}

// List returns all entities matching parameters
func (s *Service[T]) List(ctx context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.basePath, err)
	}
	logger := logging.Logger("dao.fs")
	var entities []*T
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			logger.WithError(err).WithField("url", object.URL()).Warn("skipping unreadable record")
			continue
		}
		var entity T
		if err := json.Unmarshal(data, &entity); err != nil {
			logger.WithError(err).WithField("url", object.URL()).Warn("skipping malformed record")
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

func (s *Service[T]) entityPath(id string) string {
	return url.Join(s.basePath, fmt.Sprintf("%s.json", path.Base(id)))
}

// New creates a filesystem store rooted at basePath.
func New[T any](ctx context.Context, fs afs.Service, basePath string, accessor *dao.Accessor[string, T]) (*Service[T], error) {
	if basePath == "" {
		return nil, errors.New("base path cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	basePath = url.Normalize(basePath, file.Scheme)
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	return &Service[T]{
		basePath: basePath,
		fs:       fs,
		accessor: accessor,
	}, nil
}
