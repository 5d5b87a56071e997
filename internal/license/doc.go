// Package license implements the lickey licensing engine: feature grants
// bound to a device hardware key, written to signed license files and
// checked at runtime by a verifier.
//
// # Components
//
//   - Date, HardwareKey, FeatureVersion: validated value types
//   - Feature, FeatureMap: entitlement grants keyed by normalized name
//   - License, Codec: the grant set and its signed file encoding
//   - Manager: Add, Save and Load for one vendor and application
//   - Loader: the verifier's cache of loaded licenses per identity
//
// # Validity
//
// A feature is usable when it exists, satisfies the requested minimum
// version, has a positive count and today is not after its expire date.
// The expire date itself is still usable.
//
//	loader := license.NewLoader()
//	if err := loader.Load(mgr, "widget.lic", deviceKeys); err != nil {
//		return err
//	}
//	ok := loader.IsValid(mgr.Identity(), "pro")
//
// # Threat Model
//
// Hardware binding and the HMAC tag over each file stop a license from being
// copied to another machine or edited by hand. Anyone holding the signing
// secret can issue licenses, and a verifier ships that secret, so this is a
// deterrent and not a security boundary.
//
// # Errors
//
// Every failure is a *Error whose Kind is one of the Err* sentinels. Match
// with errors.Is. The package never logs.
package license
