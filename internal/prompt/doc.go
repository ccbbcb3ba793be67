// Package prompt resolves the input folder from the command line or the
// operator, and provides the end-of-run acknowledgment pause.
package prompt
