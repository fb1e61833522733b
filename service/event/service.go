package event

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/opsagent/internal/logging"
	"github.com/viant/opsagent/service/messaging"
	"github.com/viant/opsagent/service/messaging/fs"
	"github.com/viant/opsagent/service/messaging/memory"
	"github.com/viant/opsagent/service/messaging/nats"
)

// Service hands out one typed publisher and listener per payload type.
type Service struct {
	typedPublishers map[reflect.Type]any
	typedListeners  map[reflect.Type]stopper
	queues          []any
	mux             sync.RWMutex
	vendor          messaging.Vendor
	fsConfig        func(name string) fs.Config
	memoryConfig    func(name string) memory.Config
	natsConfig      func(name string) nats.Config
}

type stopper interface{ Stop() }

// New creates an event service backed by the given queue vendor.
func New(vendor messaging.Vendor, opts ...Option) (*Service, error) {
	ret := &Service{
		vendor:          vendor,
		typedPublishers: make(map[reflect.Type]any),
		typedListeners:  make(map[reflect.Type]stopper),
		fsConfig:        fs.DefaultConfig,
		memoryConfig:    func(string) memory.Config { return memory.DefaultConfig() },
		natsConfig:      func(name string) nats.Config { return nats.DefaultConfig("opsagent." + name) },
	}
	for _, opt := range opts {
		opt(ret)
	}
	switch vendor {
	case messaging.VendorMemory, messaging.VendorFS, messaging.VendorNATS:
	default:
		return nil, fmt.Errorf("unsupported queue vendor: %s", vendor)
	}
	return ret, nil
}

// QueueOf creates a queue named name on the service vendor.
func QueueOf[T any](s *Service, name string) (messaging.Queue[T], error) {
	switch s.vendor {
	case messaging.VendorFS:
		return fs.NewQueue[T](afs.New(), s.fsConfig(name))
	case messaging.VendorMemory:
		return memory.NewQueue[T](s.memoryConfig(name)), nil
	case messaging.VendorNATS:
		return nats.NewQueue[T](s.natsConfig(name))
	}
	return nil, fmt.Errorf("unsupported queue vendor: %s", s.vendor)
}

func keyOf[T any]() reflect.Type {
	var t T
	rType := reflect.TypeOf(t)
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// PublisherOf returns the publisher for T, creating its queue on first use.
func PublisherOf[T any](s *Service) (*Publisher[T], error) {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.typedPublishers[key]
	s.mux.RUnlock()
	if ok {
		return ret.(*Publisher[T]), nil
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok = s.typedPublishers[key]; ok {
		return ret.(*Publisher[T]), nil
	}
	queue, err := QueueOf[Event[T]](s, strings.ToLower(key.Name()))
	if err != nil {
		return nil, err
	}
	publisher := NewPublisher[T](queue)
	s.typedPublishers[key] = publisher
	s.queues = append(s.queues, queue)
	return publisher, nil
}

// SetListenerOf replaces the listener consuming events of type T.
func SetListenerOf[T any](s *Service, handler func(*Event[T])) error {
	publisher, err := PublisherOf[T](s)
	if err != nil {
		return err
	}
	key := keyOf[T]()
	s.mux.Lock()
	previous := s.typedListeners[key]
	listener := NewListener[T](publisher, handler)
	s.typedListeners[key] = listener
	s.mux.Unlock()
	if previous != nil {
		previous.Stop()
	}
	listener.Start()
	return nil
}

// Emit publishes a unit completion event. A nil service is a no-op and
// publish failures are logged, never returned.
func (s *Service) Emit(ctx context.Context, unit *Unit) {
	if s == nil || unit == nil {
		return
	}
	publisher, err := PublisherOf[Unit](s)
	if err == nil {
		err = publisher.Publish(context.WithoutCancel(ctx), NewUnitEvent(unit))
	}
	if err != nil {
		logging.Logger("event").WithError(err).WithField("unit", unit.ID).Warn("failed to publish unit event")
	}
}

// LogUnits installs a listener that logs every unit event.
func (s *Service) LogUnits(logger *logrus.Entry) error {
	return SetListenerOf[Unit](s, LogHandler(logger))
}

// LogHandler returns a handler logging unit events with logger.
func LogHandler(logger *logrus.Entry) func(*Event[Unit]) {
	return func(event *Event[Unit]) {
		unit := event.Data
		entry := logger.WithFields(logrus.Fields{
			"unit":       unit.Type,
			"id":         unit.ID,
			"parent":     unit.ParentID,
			"status":     unit.Status,
			"durationMs": unit.DurationMs,
		})
		if unit.Error != "" {
			entry.WithField("error", unit.Error).Warn("unit completed")
			return
		}
		entry.Info("unit completed")
	}
}

// Close stops listeners and releases queue connections.
func (s *Service) Close() error {
	s.mux.Lock()
	listeners := s.typedListeners
	s.typedListeners = make(map[reflect.Type]stopper)
	queues := s.queues
	s.queues = nil
	s.mux.Unlock()
	for _, listener := range listeners {
		listener.Stop()
	}
	var err error
	for _, queue := range queues {
		if closer, ok := queue.(io.Closer); ok {
			if e := closer.Close(); e != nil {
				err = e
			}
		}
	}
	return err
}
