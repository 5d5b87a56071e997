// Package http implements the HTTP handlers of licsvr. Handlers parse and
// validate requests, delegate to the services package and render JSON or
// RFC 7807 problem responses through internal/errors.
//
// Routes:
//
//	GET  /hello                 reachability probe, body "World"
//	GET  /api/license           loaded licenses
//	GET  /api/license/verify    is feature F valid for vendor/application
//	POST /api/license/load      load a license file
//	GET  /api/health[/ready|/live|/version|/loader]
//	GET  /metrics               Prometheus exposition
package http
