package manager

import (
	"CapIot.telemetry/internal/auth"
	"CapIot.telemetry/internal/config"
	"CapIot.telemetry/internal/repository"
	"CapIot.telemetry/internal/restclient"
	"CapIot.telemetry/internal/telemetry"
	"github.com/pkg/errors"
)

// Manager binds a set of credentials to a ready telemetry client.
// Construction performs no network I/O.
type Manager struct {
	Credentials     auth.Credentials
	AuthProvider    auth.Provider
	TelemetryParams config.ClientParams
	TelemetryClient *telemetry.Client
	Recorder        repository.Recorder
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	recorder    repository.Recorder
	noRecorder  bool
	restOptions []restclient.Option
}

// WithRecorder records every API call to r instead of the configured InfluxDB.
func WithRecorder(r repository.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithoutRecorder disables call recording even when InfluxDB is configured.
func WithoutRecorder() Option {
	return func(o *options) {
		o.noRecorder = true
	}
}

// WithRestOptions passes options through to the REST client.
func WithRestOptions(opts ...restclient.Option) Option {
	return func(o *options) {
		o.restOptions = append(o.restOptions, opts...)
	}
}

// New creates a Manager for creds. The auth provider is a keystone provider on
// cfg.IdentityURI, or a static one when cfg.EndpointOverride is set; the static
// provider needs creds.Token.
func New(creds auth.Credentials, cfg config.Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var provider auth.Provider
	if cfg.EndpointOverride != "" {
		if creds.Token == "" {
			return nil, errors.New("a token is required when the endpoint is overridden")
		}
		provider = auth.NewStaticProvider(creds.Token, cfg.EndpointOverride)
	} else {
		if err := creds.Validate(); err != nil {
			return nil, err
		}
		identity := restclient.NewResty(cfg.ServiceClientConfig())
		provider = auth.NewKeystoneProvider(cfg.IdentityURI, creds, identity)
	}

	m, err := NewWithProvider(provider, cfg, opts...)
	if err != nil {
		return nil, err
	}
	m.Credentials = creds
	return m, nil
}

// NewWithProvider creates a Manager around an already built auth provider.
func NewWithProvider(provider auth.Provider, cfg config.Config, opts ...Option) (*Manager, error) {
	if provider == nil {
		return nil, errors.New("auth provider is required")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	m := &Manager{
		AuthProvider:    provider,
		TelemetryParams: cfg.TelemetryParams(),
	}

	switch {
	case o.noRecorder:
	case o.recorder != nil:
		m.Recorder = o.recorder
	case cfg.RecordingEnabled():
		m.Recorder = repository.NewInfluxRecorder(cfg.InfluxDBURL, cfg.InfluxDBToken, cfg.InfluxDBOrg, cfg.InfluxDBBucket)
	}

	if err := m.setTelemetryClient(o.restOptions); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) setTelemetryClient(restOpts []restclient.Option) error {
	if m.Recorder != nil {
		restOpts = append([]restclient.Option{restclient.WithRecorder(m.Recorder)}, restOpts...)
	}
	rest, err := restclient.New(m.AuthProvider, m.TelemetryParams, restOpts...)
	if err != nil {
		return errors.Wrap(err, "error creating telemetry REST client")
	}
	m.TelemetryClient = telemetry.NewClient(rest)
	return nil
}

// Close releases the recorder, if any.
func (m *Manager) Close() {
	if m.Recorder != nil {
		m.Recorder.Close()
	}
}
