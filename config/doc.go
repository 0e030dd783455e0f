// Package config loads the supervisor's YAML configuration.
//
// Configuration files may reference environment variables with ${VAR}
// syntax; a referenced variable that is not set fails the load, and $$
// escapes a literal dollar sign. Unknown fields are rejected. Every field
// is optional: zero values defer to the owning component's defaults.
//
//	cfg, err := config.Load("serverops.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctrl := lifecycle.NewController(cfg.ControllerConfig())
package config
