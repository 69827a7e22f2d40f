package testfixtures

import (
	"time"

	"github.com/example/eventboard/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation sets the zone event dates are interpreted in.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

// NewEventService builds an event service, filling the id generator, clock
// and location from the factory when deps leaves them unset.
func (f *ServiceFactory) NewEventService(deps application.EventServiceDeps) *application.EventService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	if deps.Location == nil {
		deps.Location = f.Location
	}
	return application.NewEventService(deps)
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users    application.UserRepository
	Now      func() time.Time
	Recorder application.Recorder
}

// NewUserService builds a user service using the supplied dependencies.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewUserServiceWithLogger(deps.Users, now, nil, deps.Recorder)
}

// NewAuthService builds an auth service. Session ids and tokens come from the
// factory generator unless deps supplies them.
func (f *ServiceFactory) NewAuthService(deps application.AuthServiceDeps) *application.AuthService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	return application.NewAuthService(deps)
}
