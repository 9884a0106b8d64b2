package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultCatalogType  = "metering"
	DefaultEndpointType = "publicURL"
	DefaultHTTPTimeout  = 60 * time.Second
)

// Config holds the client's configuration.
type Config struct {
	// Telemetry service catalog lookup
	CatalogType      string
	EndpointType     string
	Region           string
	IdentityURI      string
	EndpointOverride string

	// Generic service client defaults
	DisableSSLValidation bool
	CABundle             string
	TraceRequests        string
	HTTPTimeout          time.Duration

	LogLevel string

	// Optional call recording
	InfluxDBURL    string
	InfluxDBToken  string
	InfluxDBOrg    string
	InfluxDBBucket string
}

// ClientParams are the connection parameters handed to a service client.
type ClientParams struct {
	Service              string
	Region               string
	EndpointType         string
	DisableSSLValidation bool
	CABundle             string
	TraceRequests        string
	HTTPTimeout          time.Duration
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debug("No .env file found, relying on system environment variables")
	}

	cfg := Config{
		CatalogType:      getEnv("TELEMETRY_CATALOG_TYPE", DefaultCatalogType),
		EndpointType:     getEnv("TELEMETRY_ENDPOINT_TYPE", DefaultEndpointType),
		Region:           os.Getenv("IDENTITY_REGION"),
		IdentityURI:      os.Getenv("IDENTITY_URI"),
		EndpointOverride: os.Getenv("TELEMETRY_ENDPOINT_OVERRIDE"),
		CABundle:         os.Getenv("CA_CERTIFICATES_FILE"),
		TraceRequests:    os.Getenv("TRACE_REQUESTS"),
		HTTPTimeout:      DefaultHTTPTimeout,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		InfluxDBURL:      os.Getenv("INFLUXDB_URL"),
		InfluxDBToken:    os.Getenv("INFLUXDB_TOKEN"),
		InfluxDBOrg:      os.Getenv("INFLUXDB_ORG"),
		InfluxDBBucket:   getEnv("INFLUXDB_BUCKET", "telemetry_client"),
	}

	if v := os.Getenv("DISABLE_SSL_CERTIFICATE_VALIDATION"); v != "" {
		cfg.DisableSSLValidation, err = strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "invalid DISABLE_SSL_CERTIFICATE_VALIDATION")
		}
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		cfg.HTTPTimeout, err = time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "invalid HTTP_TIMEOUT")
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration can produce a working client.
func (c Config) Validate() error {
	if c.IdentityURI == "" && c.EndpointOverride == "" {
		return errors.New("telemetry configuration is incomplete. Please set IDENTITY_URI or TELEMETRY_ENDPOINT_OVERRIDE")
	}
	if c.CatalogType == "" {
		return errors.New("TELEMETRY_CATALOG_TYPE must not be empty")
	}
	set := 0
	for _, v := range []string{c.InfluxDBURL, c.InfluxDBToken, c.InfluxDBOrg} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return errors.New("InfluxDB configuration is incomplete. Please set INFLUXDB_URL, INFLUXDB_TOKEN, and INFLUXDB_ORG together")
	}
	return nil
}

// RecordingEnabled reports whether API calls should be written to InfluxDB.
func (c Config) RecordingEnabled() bool {
	return c.InfluxDBURL != "" && c.InfluxDBToken != "" && c.InfluxDBOrg != ""
}

// ServiceClientConfig returns the default parameters shared by every service client.
func (c Config) ServiceClientConfig() ClientParams {
	return ClientParams{
		DisableSSLValidation: c.DisableSSLValidation,
		CABundle:             c.CABundle,
		TraceRequests:        c.TraceRequests,
		HTTPTimeout:          c.HTTPTimeout,
	}
}

// TelemetryParams merges the telemetry catalog lookup over the service client defaults.
func (c Config) TelemetryParams() ClientParams {
	params := c.ServiceClientConfig()
	params.Service = c.CatalogType
	params.Region = c.Region
	params.EndpointType = c.EndpointType
	return params
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
