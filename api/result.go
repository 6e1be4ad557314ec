package api

import (
	"errors"
	"fmt"
)

// Result is the closed outcome taxonomy of driver operations. Every error
// returned by a driver operation carries exactly one Result in its chain.
type Result int

const (
	// ResultOk means the operation succeeded. It is never returned as an
	// error; a nil error stands for it.
	ResultOk Result = iota
	// ResultError is an opaque failure at or below the register-access layer.
	ResultError
	// ResultBadArg means a precondition on a supplied value failed.
	ResultBadArg
	// ResultFuncNotInApp means the function is not part of the loaded
	// application. No operation produces it yet.
	ResultFuncNotInApp
	// ResultAppNotLoaded means no application has been loaded.
	ResultAppNotLoaded
	// ResultExecutionFailed means the accelerator finished but reported an
	// error code. Query the register-access layer for details.
	ResultExecutionFailed
)

// String returns the name of the result.
func (r Result) String() string {
	switch r {
	case ResultOk:
		return "Ok"
	case ResultError:
		return "Error"
	case ResultBadArg:
		return "BadArg"
	case ResultFuncNotInApp:
		return "FuncNotInApp"
	case ResultAppNotLoaded:
		return "AppNotLoaded"
	case ResultExecutionFailed:
		return "ExecutionFailed"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

func (r Result) Error() string {
	return "otbn: " + r.String()
}

// ResultOf recovers the Result carried by an error returned from the driver.
// A nil error is ResultOk and an error without a Result is ResultError.
func ResultOf(err error) Result {
	if err == nil {
		return ResultOk
	}

	var r Result
	if errors.As(err, &r) {
		return r
	}

	return ResultError
}

func fail(r Result, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{r}, args...)...)
}
