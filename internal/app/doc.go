// Package app wires licsvr, the license verification server: configuration,
// logging, OpenTelemetry, hardware key discovery, the license service, the
// chi router and the HTTP server with graceful shutdown.
//
// Usage:
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run()
//
// New takes an explicit configuration and options, which tests use to
// substitute the filesystem, logger and hardware key source.
package app
