package manager

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBuiltInMod means a delete was attempted on a non-removable mod.
var ErrBuiltInMod = errors.New("cannot delete built-in mod")

// ErrUpdateInProgress means a second workflow was requested for a mod
// that already has one in flight.
var ErrUpdateInProgress = errors.New("an update for this mod is already in progress")

// CannotDisableModError means disabling or removing a mod would break
// another enabled mod's declared dependency.
type CannotDisableModError struct {
	Name       string
	RequiredBy string
	Module     string
}

func (e *CannotDisableModError) Error() string {
	return fmt.Sprintf("cannot disable %s: %s is required by %s", e.Name, e.Module, e.RequiredBy)
}

// ModFailure records one mod's failure during a batch operation.
type ModFailure struct {
	ID  string
	Err error
}

// ModUpdateFailedError aggregates per-mod failures from a batch
// operation. The batch itself always runs to completion: one mod's
// failure never prevents processing of the rest.
type ModUpdateFailedError struct {
	Failures []ModFailure
}

func (e *ModUpdateFailedError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("mod update failed: %s: %v", e.Failures[0].ID, e.Failures[0].Err)
	}
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.ID
	}
	return fmt.Sprintf("%d mod updates failed: %s", len(e.Failures), strings.Join(ids, ", "))
}

// Unwrap exposes the individual failures to errors.Is/As.
func (e *ModUpdateFailedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
