// Package watch re-runs the release pipeline whenever the entry-point source
// file changes, with a debounce so editor save bursts trigger one rebuild.
// It is a development convenience on top of the pipeline; a failed build
// keeps the watch alive.
package watch
