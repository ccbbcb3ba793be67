// Package services defines shared utilities consumed by the launcher steps
// and the external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and step names for logging and
//     history correlation.
//   - Structured error markers plus the Wrap helper that classify failures by
//     the step that produced them (provisioning, installation, asset fetch,
//     inference) and translate them into a process exit code.
//
// Use these helpers when adding a step so operational behaviour (error
// classification, observability) stays uniform across the launch sequence.
package services
