package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	SignupRequestsTotal   metric.Int64Counter
	LoginRequestsTotal    metric.Int64Counter
	SessionResolvesTotal  metric.Int64Counter
	LoginDurationSeconds  metric.Float64Histogram
	DbQueryErrorsTotal    metric.Int64Counter
	ImageUploadsTotal     metric.Int64Counter
	ImageUploadErrorTotal metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments once, using
// the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("student-welfare-api")
		var err error
		m := &AppMetrics{}

		m.SignupRequestsTotal, err = meter.Int64Counter(
			"signup_requests_total",
			metric.WithDescription("Total number of sign-up requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create signup_requests_total: %v", err)
		}

		m.LoginRequestsTotal, err = meter.Int64Counter(
			"login_requests_total",
			metric.WithDescription("Total number of login requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_requests_total: %v", err)
		}

		m.SessionResolvesTotal, err = meter.Int64Counter(
			"session_resolves_total",
			metric.WithDescription("Total number of cookie-to-session resolutions"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create session_resolves_total: %v", err)
		}

		m.LoginDurationSeconds, err = meter.Float64Histogram(
			"login_duration_seconds",
			metric.WithDescription("Duration of login requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		m.ImageUploadsTotal, err = meter.Int64Counter(
			"image_uploads_total",
			metric.WithDescription("Total number of campaign images uploaded to the image host"),
			metric.WithUnit("{upload}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create image_uploads_total: %v", err)
		}

		m.ImageUploadErrorTotal, err = meter.Int64Counter(
			"image_upload_errors_total",
			metric.WithDescription("Total number of failed campaign image uploads"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create image_upload_errors_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the initialized metric instruments. It panics if
// InitAppMetrics was never called.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics: InitAppMetrics must be called before Get")
	}
	return appMetrics
}
