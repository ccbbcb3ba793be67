// Package install applies requirement sets to a provisioned environment with
// the environment's own pip, strictly in the order given.
package install
