// Package pipeline sequences the two external packaging tools into a release
// build: validate the environment, freeze the application into a standalone
// executable, then compile the installer. The controller enforces a hard
// stage gate (packaging never starts without a verified frozen executable),
// bounds every tool invocation, and aggregates per-stage results into a final
// report whose error maps to the documented process exit codes.
package pipeline
