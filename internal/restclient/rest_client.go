package restclient

import (
	"context"
	"crypto/tls"
	"net/http"
	"regexp"
	"strings"
	"time"

	"CapIot.telemetry/internal/auth"
	"CapIot.telemetry/internal/config"
	"CapIot.telemetry/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Client is the contract service clients build on.
type Client interface {
	Get(ctx context.Context, path string) (*models.Response, []byte, error)
	Post(ctx context.Context, path string, body []byte) (*models.Response, []byte, error)
	ExpectedSuccess(expected, status int) error
}

// RestClient issues authenticated JSON requests against one catalog endpoint.
type RestClient struct {
	provider auth.Provider
	filter   auth.EndpointFilter
	client   *resty.Client
	trace    *regexp.Regexp
	recorder CallRecorder
}

// Option configures a RestClient.
type Option func(*RestClient)

// WithRecorder sends a CallRecord for every request to r.
func WithRecorder(r CallRecorder) Option {
	return func(c *RestClient) {
		c.recorder = r
	}
}

// WithRestyClient replaces the underlying resty client.
func WithRestyClient(rc *resty.Client) Option {
	return func(c *RestClient) {
		c.client = rc
	}
}

// New creates a RestClient for the endpoint params select.
func New(provider auth.Provider, params config.ClientParams, opts ...Option) (*RestClient, error) {
	if provider == nil {
		return nil, errors.New("auth provider is required")
	}

	c := &RestClient{
		provider: provider,
		filter: auth.EndpointFilter{
			Service:      params.Service,
			Region:       params.Region,
			EndpointType: params.EndpointType,
		},
		client: NewResty(params),
	}
	if params.TraceRequests != "" {
		re, err := regexp.Compile(params.TraceRequests)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid trace requests pattern %q", params.TraceRequests)
		}
		c.trace = re
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewResty builds the resty client shared by REST and identity calls.
func NewResty(params config.ClientParams) *resty.Client {
	rc := resty.New()
	if params.HTTPTimeout > 0 {
		rc.SetTimeout(params.HTTPTimeout)
	}
	if params.DisableSSLValidation {
		rc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	} else if params.CABundle != "" {
		rc.SetRootCertificate(params.CABundle)
	}
	return rc
}

// Get issues a GET for path, relative to the service endpoint.
func (c *RestClient) Get(ctx context.Context, path string) (*models.Response, []byte, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

// Post issues a POST of body to path, relative to the service endpoint.
func (c *RestClient) Post(ctx context.Context, path string, body []byte) (*models.Response, []byte, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

// ExpectedSuccess returns an *models.UnexpectedStatusError unless status equals expected.
func (c *RestClient) ExpectedSuccess(expected, status int) error {
	if status == expected {
		return nil
	}
	return models.NewUnexpectedStatusError(expected, status)
}

func (c *RestClient) request(ctx context.Context, method, path string, body []byte) (*models.Response, []byte, error) {
	token, err := c.provider.Token(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error obtaining auth token")
	}
	base, err := c.provider.BaseURL(ctx, c.filter)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error resolving service endpoint")
	}
	url := JoinURL(base, path)

	req := c.client.R().
		SetContext(ctx).
		SetHeader("X-Auth-Token", token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, url)
	duration := time.Since(start)

	record := CallRecord{
		Operation: OperationFromContext(ctx),
		Method:    method,
		URL:       url,
		Duration:  duration,
		Time:      start,
	}
	if err != nil {
		record.Err = err
		c.record(ctx, record)
		return nil, nil, errors.Wrapf(err, "error calling %s %s", method, url)
	}
	record.Status = resp.StatusCode()
	c.record(ctx, record)
	c.logRequest(record, body, resp.Body())

	return &models.Response{Status: resp.StatusCode(), Header: resp.Header()}, resp.Body(), nil
}

func (c *RestClient) logRequest(rec CallRecord, reqBody, respBody []byte) {
	fields := log.Fields{
		"operation": rec.Operation,
		"method":    rec.Method,
		"url":       rec.URL,
		"status":    rec.Status,
		"duration":  rec.Duration,
	}
	if c.trace != nil && c.trace.MatchString(rec.Operation) {
		log.WithFields(fields).Info("request")
	}
	log.WithFields(fields).
		WithField("request_body", string(reqBody)).
		WithField("response_body", string(respBody)).
		Debug("request")
}

func (c *RestClient) record(ctx context.Context, rec CallRecord) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordCall(ctx, rec); err != nil {
		log.WithError(err).WithField("url", rec.URL).Warn("failed to record API call")
	}
}

// JoinURL appends a relative path (which may carry a query string) to base.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
