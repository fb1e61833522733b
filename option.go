package opsagent

import (
	"github.com/viant/afs/storage"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/adapter"
	"github.com/viant/opsagent/service/approval"
	"github.com/viant/opsagent/service/classifier"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/event"
	"github.com/viant/opsagent/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the service.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithCatalog loads definitions from URL; options are passed to every afs
// call, for example an *embed.FS.
func WithCatalog(URL string, options ...storage.Option) Option {
	return func(s *Service) {
		s.catalogURL = URL
		s.catalogOptions = options
	}
}

// WithAdapter sets the external-system adapter used by the executor.
func WithAdapter(anAdapter adapter.Adapter) Option {
	return func(s *Service) { s.adapter = anAdapter }
}

// WithActionServices registers additional local action services.
func WithActionServices(services ...types.Service) Option {
	return func(s *Service) {
		s.actionServices = append(s.actionServices, services...)
	}
}

// WithClassifier replaces the keyword classifier.
func WithClassifier(aClassifier classifier.Classifier) Option {
	return func(s *Service) { s.classifier = aClassifier }
}

// WithApprovalService sets the approval ledger.
func WithApprovalService(svc approval.Service) Option {
	return func(s *Service) { s.approvals = svc }
}

// WithEventService sets the event service receiving unit events.
func WithEventService(service *event.Service) Option {
	return func(s *Service) { s.events = service }
}

// WithSessionStore sets the session store.
func WithSessionStore(store dao.Service[string, model.Session]) Option {
	return func(s *Service) { s.sessions = store }
}

// WithTaskStore sets the task store.
func WithTaskStore(store dao.Service[string, model.Task]) Option {
	return func(s *Service) { s.tasks = store }
}

// WithExecutionStore sets the workflow execution store.
func WithExecutionStore(store dao.Service[string, execution.Workflow]) Option {
	return func(s *Service) { s.executions = store }
}

// WithActionStore sets the action execution store.
func WithActionStore(store dao.Service[string, execution.Action]) Option {
	return func(s *Service) { s.actionRuns = store }
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		if err := tracing.Init(serviceName, serviceVersion, outputFile); err != nil {
			s.logger.WithError(err).Warn("failed to initialise tracing")
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err != nil {
			s.logger.WithError(err).Warn("failed to initialise tracing")
		}
	}
}
