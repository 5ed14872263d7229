package apperror

// Assert returns nil when cond holds, and otherwise an *AppError built from
// the status, message and optional code. It is the single mechanism for
// enforcing service preconditions: callers check the result and return it
// immediately, so every failed precondition aborts the operation the same
// way.
//
//	if err := apperror.Assert(user != nil, http.StatusUnauthorized, "Invalid email or password"); err != nil {
//	    return nil, err
//	}
func Assert(cond bool, status int, message string, code ...Code) error {
	if cond {
		return nil
	}
	return New(status, message, code...)
}
