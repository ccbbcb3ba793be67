// Package assets runs the model download script inside the environment and
// confirms the checkpoint it is expected to produce.
package assets
