// Package build defines the domain model of the release pipeline: the build
// target, the artifacts each stage produces, per-stage results, the controller
// state machine, and the error taxonomy used for gating and exit codes.
//
// Artifact verification lives here because an artifact's existence and
// non-emptiness after a tool run is the pipeline's only proof of success.
package build
