package domain

import (
	"fmt"

	"mfg_portal_backend/platform/apperr"
)

// Stable machine-readable error codes for the production engine.
// Handlers surface these verbatim so clients can branch on the exact
// business rule that failed.
const (
	CodeInvalidProcessName          = "invalid_process_name"
	CodeInvalidTransition           = "invalid_transition"
	CodeInvalidQuantity             = "invalid_quantity"
	CodeUpstreamNotReady            = "upstream_not_ready"
	CodeExceedsTarget               = "exceeds_target"
	CodeExceedsUpstreamAvailability = "exceeds_upstream_availability"
	CodeExceedsAchieved             = "exceeds_achieved"
	CodeNotFound                    = "not_found"
	CodeConflict                    = "conflict"
	CodeInvalidState                = "invalid_state"
)

// ErrInvalidProcessName reports a process name that is not part of the
// unit's pipeline.
func ErrInvalidProcessName(process string) *apperr.Error {
	return apperr.Unprocessable(fmt.Sprintf("process %q is not part of the unit's pipeline", process)).
		WithCode(CodeInvalidProcessName)
}

// ErrInvalidTransition reports a start or progress call in a status that
// does not allow it.
func ErrInvalidTransition(process string, status Status) *apperr.Error {
	return apperr.Unprocessable(fmt.Sprintf("stage %q cannot be modified in status %s", process, status)).
		WithCode(CodeInvalidTransition).
		WithDetails(map[string]interface{}{"process": process, "status": string(status)})
}

// ErrInvalidQuantity reports a negative quantity input.
func ErrInvalidQuantity(delta int64) *apperr.Error {
	return apperr.Validation(fmt.Sprintf("quantity must be non-negative, got %d", delta)).
		WithCode(CodeInvalidQuantity)
}

// ErrUpstreamNotReady reports a progress attempt while the predecessor
// stage has produced nothing.
func ErrUpstreamNotReady(process, predecessor string) *apperr.Error {
	return apperr.Unprocessable(fmt.Sprintf("cannot progress %q: upstream stage %q has not produced any quantity", process, predecessor)).
		WithCode(CodeUpstreamNotReady).
		WithDetails(map[string]interface{}{"process": process, "predecessor": predecessor})
}

// ErrExceedsTarget reports an increment that would push achieved past the
// PO ceiling.
func ErrExceedsTarget(process string, achieved, delta, target int64) *apperr.Error {
	return apperr.Unprocessable(fmt.Sprintf("increment %d on achieved quantity %d would exceed target %d for stage %q", delta, achieved, target, process)).
		WithCode(CodeExceedsTarget).
		WithDetails(map[string]interface{}{"process": process, "achieved": achieved, "delta": delta, "target": target})
}

// ErrExceedsUpstreamAvailability reports an increment that would push
// achieved past the predecessor's output.
func ErrExceedsUpstreamAvailability(process string, attempted, available int64) *apperr.Error {
	return apperr.Unprocessable(fmt.Sprintf("achieved quantity %d would exceed upstream availability %d for stage %q", attempted, available, process)).
		WithCode(CodeExceedsUpstreamAvailability).
		WithDetails(map[string]interface{}{"process": process, "attempted": attempted, "available": available})
}

// ErrExceedsAchieved reports a QC rejection larger than the stage's
// achieved quantity at inspection time.
func ErrExceedsAchieved(process string, rejected, achieved int64) *apperr.Error {
	return apperr.Unprocessable(fmt.Sprintf("rejected quantity %d exceeds achieved quantity %d for stage %q", rejected, achieved, process)).
		WithCode(CodeExceedsAchieved).
		WithDetails(map[string]interface{}{"process": process, "rejected": rejected, "achieved": achieved})
}

// ErrStageNotFound reports a missing stage row.
func ErrStageNotFound() *apperr.Error {
	return apperr.NotFound("production stage not found").WithCode(CodeNotFound)
}

// ErrConflict reports a lost optimistic-concurrency race that exhausted
// its retries.
func ErrConflict(process string) *apperr.Error {
	return apperr.Conflict(fmt.Sprintf("concurrent update on stage %q, please retry", process)).
		WithCode(CodeConflict)
}

// ErrInvalidState reports a QC event against a stage that does not accept
// inspections.
func ErrInvalidState(process string, status Status) *apperr.Error {
	return apperr.Unprocessable(fmt.Sprintf("stage %q does not accept QC events in status %s", process, status)).
		WithCode(CodeInvalidState).
		WithDetails(map[string]interface{}{"process": process, "status": string(status)})
}
