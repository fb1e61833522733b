// Package meta loads definition and configuration documents through viant/afs.
// Documents are decoded by extension (yaml, yml, json, toml) after ${env.X}
// expansion.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Service resolves relative locations against a base URL.
type Service struct {
	fs      afs.Service
	baseURL string
	options []storage.Option
}

// URL returns the absolute location.
func (s *Service) URL(location string) string {
	if location == "" {
		return s.baseURL
	}
	if s.baseURL == "" || !url.IsRelative(location) {
		return location
	}
	return url.Join(s.baseURL, location)
}

// Download returns the document content with env expressions expanded.
func (s *Service) Download(ctx context.Context, location string) ([]byte, error) {
	URL := s.URL(location)
	data, err := s.fs.DownloadWithURL(ctx, URL, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", URL, err)
	}
	return []byte(expandEnv(string(data))), nil
}

// Load decodes the document at location into target.
func (s *Service) Load(ctx context.Context, location string, target interface{}) error {
	data, err := s.Download(ctx, location)
	if err != nil {
		return err
	}
	return Decode(location, data, target)
}

// Exists reports whether the document exists.
func (s *Service) Exists(ctx context.Context, location string) (bool, error) {
	return s.fs.Exists(ctx, s.URL(location), s.options...)
}

// List returns the URLs of the documents under location with one of the given extensions.
func (s *Service) List(ctx context.Context, location string, extensions ...string) ([]string, error) {
	URL := s.URL(location)
	objects, err := s.fs.List(ctx, URL, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", URL, err)
	}
	var ret []string
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		if len(extensions) > 0 && !hasExtension(object.Name(), extensions) {
			continue
		}
		ret = append(ret, object.URL())
	}
	return ret, nil
}

// Decode unmarshals data by the location extension; unknown extensions are decoded as YAML.
func Decode(location string, data []byte, target interface{}) error {
	var err error
	switch strings.ToLower(path.Ext(location)) {
	case ".json":
		err = json.Unmarshal(data, target)
	case ".toml":
		err = toml.Unmarshal(data, target)
	default:
		err = yaml.Unmarshal(data, target)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", location, err)
	}
	return nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, candidate := range extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// New creates a meta service; options are passed to every afs call (for example *embed.FS).
func New(fs afs.Service, baseURL string, options ...storage.Option) *Service {
	if fs == nil {
		fs = afs.New()
	}
	return &Service{fs: fs, baseURL: baseURL, options: options}
}
