// Package launcher sequences one lipsync run: provision the environment,
// install requirements, fetch model assets, resolve the input folder, and run
// batch inference.
//
// The sequence is strictly linear. Each step receives the environment Handle
// explicitly; nothing mutates this process's own environment. Provisioning
// and inference failures always end the run. Installation and asset failures
// end it too unless run.halt_on_failure is disabled, in which case they are
// logged as warnings and the run continues the way the original batch script
// did.
//
// A per-root file lock keeps two runs from sharing an environment, and every
// finished run is appended to the history store when one is attached.
package launcher
