// Package inference invokes the batch lip-sync program with the fixed
// checkpoint and the operator's folder, and reports its exit status.
package inference
