// Package logs reads the JSON log file the launcher writes alongside its
// console output.
//
// Last returns the final lines of the file with bounded memory, optionally
// filtered to one run or step. Follow polls from an offset and survives the
// file being rotated underneath it.
package logs
