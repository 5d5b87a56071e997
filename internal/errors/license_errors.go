package errors

import (
	"errors"
	"io/fs"
	"net/http"

	"lickey/internal/license"
	"lickey/pkg/contracts/domain"
)

// Problem types of the license engine
const (
	TypeLicenseInvalid            = "/errors/license/invalid"
	TypeLicenseDuplicateFeature   = "/errors/license/duplicate-feature"
	TypeLicenseCorrupt            = "/errors/license/corrupt"
	TypeLicenseUnsupportedVersion = "/errors/license/unsupported-version"
	TypeLicenseIdentityMismatch   = "/errors/license/identity-mismatch"
	TypeLicenseHardwareMismatch   = "/errors/license/hardware-mismatch"
	TypeLicenseNotFound           = "/errors/license/not-found"
	TypeLicenseIO                 = "/errors/license/io"
)

// MapLicenseError converts an error returned by the license engine into
// problem details. ok is false when err carries no license kind.
func MapLicenseError(err error, instance string) (problem *ProblemDetails, ok bool) {
	kind := license.KindOf(err)
	if kind == nil {
		return nil, false
	}

	switch kind {
	case license.ErrInvalidFormat:
		problem = NewProblemDetails(http.StatusBadRequest, TypeLicenseInvalid,
			"Invalid License Data", err.Error(), instance).
			WithExtension("error_code", domain.ErrCodeInvalidFormat)
	case license.ErrInvalidRange:
		problem = NewProblemDetails(http.StatusBadRequest, TypeLicenseInvalid,
			"License Value Out Of Range", err.Error(), instance).
			WithExtension("error_code", domain.ErrCodeInvalidRange)
	case license.ErrDuplicateFeature:
		problem = NewProblemDetails(http.StatusConflict, TypeLicenseDuplicateFeature,
			"Duplicate Feature", err.Error(), instance).
			WithExtension("error_code", domain.ErrCodeDuplicateFeature)
	case license.ErrCorruptFormat:
		problem = NewProblemDetails(http.StatusUnprocessableEntity, TypeLicenseCorrupt,
			"Corrupt License",
			"The license file is damaged or was not issued with this server's secret.",
			instance).
			WithExtension("error_code", domain.ErrCodeCorruptLicense)
	case license.ErrUnsupportedVersion:
		problem = NewProblemDetails(http.StatusUnprocessableEntity, TypeLicenseUnsupportedVersion,
			"Unsupported License Version", err.Error(), instance).
			WithExtension("error_code", domain.ErrCodeUnsupportedVersion)
	case license.ErrIdentityMismatch:
		problem = NewProblemDetails(http.StatusUnprocessableEntity, TypeLicenseIdentityMismatch,
			"License Identity Mismatch",
			"The license was issued for a different vendor or application.",
			instance).
			WithExtension("error_code", domain.ErrCodeIdentityMismatch)
	case license.ErrHardwareMismatch:
		problem = NewProblemDetails(http.StatusForbidden, TypeLicenseHardwareMismatch,
			"License Hardware Mismatch",
			"This license is bound to a different machine.",
			instance).
			WithExtension("error_code", domain.ErrCodeHardwareMismatch)
	default:
		if errors.Is(err, fs.ErrNotExist) {
			problem = NewProblemDetails(http.StatusNotFound, TypeLicenseNotFound,
				"License Not Found", "The license file does not exist.", instance).
				WithExtension("error_code", domain.ErrCodeIOError)
		} else {
			problem = NewProblemDetails(http.StatusInternalServerError, TypeLicenseIO,
				"License Storage Error", "The license file could not be read or written.", instance).
				WithExtension("error_code", domain.ErrCodeIOError)
		}
	}
	return problem, true
}
