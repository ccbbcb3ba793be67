// Package preflight provides side-effect-free readiness checks for the files,
// directories, and binaries a launcher run depends on.
//
// The CLI "lipsync status" command renders these results; the launcher itself
// never consults them, so a failed check is advisory.
package preflight
