// Package logging assembles the structured slog loggers used by lipsync.
//
// A run logs to two sinks at once: a human-oriented console handler on stderr
// and a JSON handler writing to a size-rotated file under the configured log
// directory. Context helpers tag records with the run identifier and the
// launch step so both sinks can be correlated after the fact.
package logging
