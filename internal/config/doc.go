// Package config loads, normalizes, and validates lipsync configuration data.
//
// It supplies repository defaults, anchors every relative path to the launcher
// root (the directory holding the executable unless overridden), expands
// tilde shortcuts, reads TOML files, and honours environment overrides such as
// LIPSYNC_ROOT. The Config type centralizes every knob the launch sequence
// needs: where the Python environment lives, which requirement sets to apply,
// which scripts fetch models and run inference, and how the run behaves on
// failure.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
