// Package venv provisions the isolated Python environment lipsync runs its
// tools in.
//
// Ensure creates the environment once with the base interpreter's venv module
// and reuses it on every later run. Instead of activating the environment for
// the whole process, callers receive a Handle that carries the environment's
// interpreter and the child process environment (VIRTUAL_ENV, PATH, and any
// forwarded dotenv values). Every step that runs Python takes the Handle
// explicitly.
package venv
