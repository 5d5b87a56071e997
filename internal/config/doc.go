// Package config loads the configuration shared by licsvr and lickeygen.
//
// # Configuration Sources
//
// Values are resolved in the following order, later sources winning:
//
//  1. Default()
//  2. A YAML file: $LICKEY_CONFIG, or licsvr.yaml in the working directory
//  3. Environment variables
//
// # Environment Variables
//
// Variables follow the pattern LICKEY_<SECTION>_<FIELD>:
//
//	LICKEY_SERVER_PORT=27000
//	LICKEY_LICENSE_SECRET=...
//	LICKEY_LICENSE_HARDWARE_KEYS=11-22-33-AA-BB-CC,FF-FF-FF-FF-FF-FF
//	LICKEY_SECURITY_RATE_LIMIT_RPS=100
//	LICKEY_LOGGING_LEVEL=debug
//
// The signing secret should only ever come from the environment or a file
// with restricted permissions.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ValidateSecret(); err != nil {
//	    return err
//	}
package config
