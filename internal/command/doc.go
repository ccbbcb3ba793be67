// Package command runs the external programs the launcher sequences: the
// Python interpreter that creates the environment, pip, the model download
// script, and the batch inference entry point.
//
// Every step talks to an Executor instead of os/exec directly so tests can
// substitute recording stand-ins, and so child exit statuses surface as
// *ExitError values the CLI can propagate.
package command
