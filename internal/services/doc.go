// Package services implements the business logic between the HTTP handlers
// and the license engine.
//
// LicenseService is the verifier: it reads signed license files through an
// afero filesystem, checks them against the hardware keys of this device and
// caches them in a license.Loader. Administrative loads are de-duplicated with
// singleflight; the startup load verifies files concurrently with an errgroup
// and stores them in a deterministic order. Every operation is traced and
// counted on the injected OpenTelemetry meter.
//
// HealthService reports liveness and readiness, the latter requiring at least
// one loaded license.
package services
