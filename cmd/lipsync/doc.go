// Package main hosts the lipsync CLI entrypoint and command graph.
//
// Invoked with an optional folder argument, the root command runs the full
// launch sequence: provision the Python environment, install requirements,
// fetch model assets, and hand the folder to batch inference. Subcommands
// cover configuration scaffolding, environment status, folder planning, and
// run history.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// surfaced here through flags and rendering only.
package main
