package engine

import "github.com/xiaoyu21git/astockquant/errs"

// Sentinel errors forming the closed error-kind set at the core
// boundary. Callers compare with errors.Is; wrapped variants add the
// failing identifier via fmt.Errorf("...: %w", ...). These are
// re-exports of package errs so the root package and the subpackages
// that return errs sentinels (such as eventbus) share one identity per
// error kind. Package clock keeps its own, separate sentinels.
var (
	ErrInvalidArgument    = errs.ErrInvalidArgument
	ErrNotFound           = errs.ErrNotFound
	ErrAlreadyExists      = errs.ErrAlreadyExists
	ErrBusStopped         = errs.ErrBusStopped
	ErrTimeout            = errs.ErrTimeout
	ErrResourceExhausted  = errs.ErrResourceExhausted
	ErrBusy               = errs.ErrBusy
	ErrDisconnected       = errs.ErrDisconnected
	ErrInvalidTransition  = errs.ErrInvalidTransition
	ErrEngineInErrorState = errs.ErrEngineInErrorState
)
