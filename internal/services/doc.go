// Package services defines the shared error taxonomy and context helpers
// used by the stage adapters and the pipeline orchestrator.
//
// Errors raised by adapters are tagged with one of the exported sentinel
// errors so that callers can classify failures with errors.Is without
// depending on adapter internals.
package services
