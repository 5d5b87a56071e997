package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"lickey/internal/license"
)

// LicenseMetrics are the license instruments exported on /metrics. A nil
// *LicenseMetrics records nothing.
type LicenseMetrics struct {
	Verifications metric.Int64Counter
	Loads         metric.Int64Counter
	LoadDuration  metric.Float64Histogram
	Loaded        metric.Int64ObservableGauge
}

// NewLicenseMetrics registers the instruments on meter. The loaded gauge is
// observed from loader on every collection.
func NewLicenseMetrics(meter metric.Meter, loader *license.Loader) (*LicenseMetrics, error) {
	verifications, err := meter.Int64Counter(
		"license_verifications_total",
		metric.WithDescription("Feature verifications by result"),
	)
	if err != nil {
		return nil, err
	}
	loads, err := meter.Int64Counter(
		"license_loads_total",
		metric.WithDescription("License file loads by result"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"license_load_duration_seconds",
		metric.WithDescription("Time to read and verify a license file"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	loaded, err := meter.Int64ObservableGauge(
		"licenses_loaded",
		metric.WithDescription("Licenses currently cached by the verifier"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(loader.Len()))
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return &LicenseMetrics{
		Verifications: verifications,
		Loads:         loads,
		LoadDuration:  duration,
		Loaded:        loaded,
	}, nil
}

func (m *LicenseMetrics) recordVerification(ctx context.Context, valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.Verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *LicenseMetrics) recordLoad(ctx context.Context, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = loadFailureReason(err)
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.Loads.Add(ctx, 1, attrs)
	m.LoadDuration.Record(ctx, d.Seconds(), attrs)
}

func loadFailureReason(err error) string {
	switch license.KindOf(err) {
	case license.ErrCorruptFormat:
		return "corrupt"
	case license.ErrUnsupportedVersion:
		return "unsupported_version"
	case license.ErrIdentityMismatch:
		return "identity_mismatch"
	case license.ErrHardwareMismatch:
		return "hardware_mismatch"
	case license.ErrIO:
		return "io_error"
	case nil:
		return "error"
	default:
		return "invalid"
	}
}
