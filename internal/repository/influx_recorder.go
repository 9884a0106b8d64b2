package repository

import (
	"context"
	"net/url"
	"time"

	"CapIot.telemetry/internal/restclient"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const callMeasurement = "api_call"

// Recorder stores API call records.
type Recorder interface {
	restclient.CallRecorder
	Health(ctx context.Context) error
	BucketExists(ctx context.Context) (bool, error)
	CreateBucket(ctx context.Context) error
	Close()
}

// InfluxRecorder writes API call records to an InfluxDB bucket.
type InfluxRecorder struct {
	client influxdb2.Client
	org    string
	bucket string
}

// NewInfluxRecorder creates a new InfluxRecorder. It does not contact the server.
func NewInfluxRecorder(url, token, org, bucket string) *InfluxRecorder {
	return &InfluxRecorder{
		client: influxdb2.NewClient(url, token),
		org:    org,
		bucket: bucket,
	}
}

// RecordCall writes one point for rec.
func (r *InfluxRecorder) RecordCall(ctx context.Context, rec restclient.CallRecord) error {
	writeAPI := r.client.WriteAPIBlocking(r.org, r.bucket)

	tags := map[string]string{
		"method": rec.Method,
		"path":   pathOf(rec.URL),
	}
	if rec.Operation != "" {
		tags["operation"] = rec.Operation
	}
	fields := map[string]interface{}{
		"status":      rec.Status,
		"duration_ms": float64(rec.Duration) / float64(time.Millisecond),
		"failed":      rec.Err != nil,
	}
	if rec.Err != nil {
		fields["error"] = rec.Err.Error()
	}

	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	p := influxdb2.NewPoint(callMeasurement, tags, fields, ts)

	if err := writeAPI.WritePoint(ctx, p); err != nil {
		return errors.Wrap(err, "error writing to InfluxDB")
	}
	log.WithFields(log.Fields{"bucket": r.bucket, "path": tags["path"], "status": rec.Status}).
		Debug("API call written to InfluxDB")
	return nil
}

// Health checks the connection to InfluxDB.
func (r *InfluxRecorder) Health(ctx context.Context) error {
	health, err := r.client.Health(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to connect to InfluxDB")
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return errors.Errorf("InfluxDB health check failed: %s", msg)
	}
	return nil
}

// BucketExists checks if the recorder's bucket exists in its organization.
// The lookup filters by name on the server, so it does not depend on paging.
func (r *InfluxRecorder) BucketExists(ctx context.Context) (bool, error) {
	params := &domain.GetBucketsParams{Org: &r.org, Name: &r.bucket}
	resp, err := r.client.APIClient().GetBuckets(ctx, params)
	if err != nil {
		return false, errors.Wrap(err, "error checking bucket existence")
	}
	if resp.Buckets == nil {
		return false, nil
	}
	for _, b := range *resp.Buckets {
		if b.Name == r.bucket {
			return true, nil
		}
	}
	return false, nil
}

// CreateBucket creates the recorder's bucket in its organization.
func (r *InfluxRecorder) CreateBucket(ctx context.Context) error {
	org, err := r.client.OrganizationsAPI().FindOrganizationByName(ctx, r.org)
	if err != nil {
		return errors.Wrapf(err, "error finding organization '%s'", r.org)
	}
	if org == nil {
		return errors.Errorf("organization '%s' not found", r.org)
	}

	if _, err := r.client.BucketsAPI().CreateBucketWithName(ctx, org, r.bucket); err != nil {
		return errors.Wrapf(err, "error creating bucket '%s'", r.bucket)
	}
	log.Infof("Bucket '%s' created", r.bucket)
	return nil
}

// EnsureBucket creates the bucket unless it already exists.
func EnsureBucket(ctx context.Context, r Recorder) error {
	exists, err := r.BucketExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return r.CreateBucket(ctx)
}

// Close releases the client's resources.
func (r *InfluxRecorder) Close() {
	r.client.Close()
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
