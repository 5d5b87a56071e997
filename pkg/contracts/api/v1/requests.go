// Package api contains the request contracts of the licsvr HTTP API, version v1.
package api

// LicenseLoadRequest asks the server to load a license file. When Vendor and
// Application are given the file must have been issued for them.
type LicenseLoadRequest struct {
	Path        string `json:"path" validate:"required"`
	Vendor      string `json:"vendor,omitempty" validate:"required_with=Application"`
	Application string `json:"application,omitempty" validate:"required_with=Vendor"`
}

// LicenseVerifyRequest is bound from the query string of the verify endpoint.
type LicenseVerifyRequest struct {
	Vendor      string `query:"vendor" validate:"required"`
	Application string `query:"application" validate:"required"`
	Feature     string `query:"feature" validate:"required"`
	MinVersion  string `query:"min_version" validate:"omitempty,numeric"`
}
