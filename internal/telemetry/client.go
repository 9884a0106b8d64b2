package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"CapIot.telemetry/internal/models"
	"CapIot.telemetry/internal/restclient"
	"github.com/pkg/errors"
)

const (
	// Version is the metering API version this client speaks.
	Version   = "2"
	URIPrefix = "v" + Version
)

// Client wraps the v2 metering API.
type Client struct {
	rest restclient.Client
}

// NewClient creates a Client on top of a REST client.
func NewClient(rest restclient.Client) *Client {
	return &Client{rest: rest}
}

// Serialize encodes an outgoing body.
func Serialize(body any) ([]byte, error) {
	return json.Marshal(body)
}

// Deserialize removes every newline from body before decoding it into v.
// The service has been seen emitting raw newlines inside documents.
// Numbers decode as json.Number so large counters keep their exact value.
func Deserialize(body []byte, v any) error {
	stripped := bytes.ReplaceAll(body, []byte("\n"), nil)
	if !json.Valid(stripped) {
		return json.Unmarshal(stripped, v)
	}
	dec := json.NewDecoder(bytes.NewReader(stripped))
	dec.UseNumber()
	return dec.Decode(v)
}

// CreateSample posts samples for meterName. samples may be any JSON-serializable
// value, normally a slice of models.Sample.
func (c *Client) CreateSample(ctx context.Context, meterName string, samples any) (*models.ResponseBody, error) {
	ctx = restclient.WithOperation(ctx, "create_sample")
	uri := fmt.Sprintf("%s/meters/%s", URIPrefix, url.PathEscape(meterName))
	body, err := Serialize(samples)
	if err != nil {
		return nil, errors.Wrap(err, "error serializing samples")
	}

	resp, raw, err := c.rest.Post(ctx, uri, body)
	if err != nil {
		return nil, err
	}
	if err := c.expectOK(resp, http.MethodPost, uri, raw); err != nil {
		return nil, err
	}

	out := &models.ResponseBody{Response: *resp}
	if err := Deserialize(raw, &out.Body); err != nil {
		return nil, err
	}
	return out, nil
}

// ListResources lists resources, optionally filtered.
func (c *Client) ListResources(ctx context.Context, query *models.Query) (*models.ResponseBodyList, error) {
	ctx = restclient.WithOperation(ctx, "list_resources")
	return c.helperList(ctx, URIPrefix+"/resources", query, "")
}

// ListMeters lists meters, optionally filtered.
func (c *Client) ListMeters(ctx context.Context, query *models.Query) (*models.ResponseBodyList, error) {
	ctx = restclient.WithOperation(ctx, "list_meters")
	return c.helperList(ctx, URIPrefix+"/meters", query, "")
}

// ListStatistics lists statistics for meter. An empty period leaves
// aggregation to the service.
func (c *Client) ListStatistics(ctx context.Context, meter, period string, query *models.Query) (*models.ResponseBodyList, error) {
	ctx = restclient.WithOperation(ctx, "list_statistics")
	uri := fmt.Sprintf("%s/meters/%s/statistics", URIPrefix, url.PathEscape(meter))
	return c.helperList(ctx, uri, query, period)
}

// ListSamples lists the samples recorded for meterID.
func (c *Client) ListSamples(ctx context.Context, meterID string, query *models.Query) (*models.ResponseBodyList, error) {
	ctx = restclient.WithOperation(ctx, "list_samples")
	uri := fmt.Sprintf("%s/meters/%s", URIPrefix, url.PathEscape(meterID))
	return c.helperList(ctx, uri, query, "")
}

// ShowResource fetches a single resource.
func (c *Client) ShowResource(ctx context.Context, resourceID string) (*models.ResponseBody, error) {
	ctx = restclient.WithOperation(ctx, "show_resource")
	uri := fmt.Sprintf("%s/resources/%s", URIPrefix, url.PathEscape(resourceID))

	resp, raw, err := c.rest.Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	if err := c.expectOK(resp, http.MethodGet, uri, raw); err != nil {
		return nil, err
	}

	out := &models.ResponseBody{Response: *resp}
	if err := Deserialize(raw, &out.Body); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) helperList(ctx context.Context, uri string, query *models.Query, period string) (*models.ResponseBodyList, error) {
	if qs := EncodeQuery(query, period); qs != "" {
		uri += "?" + qs
	}

	resp, raw, err := c.rest.Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	if err := c.expectOK(resp, http.MethodGet, uri, raw); err != nil {
		return nil, err
	}

	out := &models.ResponseBodyList{Response: *resp}
	if err := Deserialize(raw, &out.Body); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) expectOK(resp *models.Response, method, uri string, raw []byte) error {
	err := c.rest.ExpectedSuccess(http.StatusOK, resp.Status)
	var statusErr *models.UnexpectedStatusError
	if errors.As(err, &statusErr) {
		statusErr.Method = method
		statusErr.URL = uri
		statusErr.Body = string(raw)
	}
	return err
}

// EncodeQuery builds the query string for a filter and period, keeping the
// order q.field, q.op, q.value, period. It returns "" when neither is set.
func EncodeQuery(query *models.Query, period string) string {
	var params []string
	if query != nil {
		params = append(params,
			"q.field="+url.QueryEscape(query.Field),
			"q.op="+url.QueryEscape(query.Op),
			"q.value="+url.QueryEscape(query.Value),
		)
	}
	if period != "" {
		params = append(params, "period="+url.QueryEscape(period))
	}
	return strings.Join(params, "&")
}
