package dispatch

import "fmt"

// RetryableError reports the device keys of a batch that were not
// delivered but may succeed on a later attempt. Keys missing from
// FailedKeys were either delivered or rejected permanently, so a retry
// must send to FailedKeys only.
type RetryableError struct {
	FailedKeys []string
	Err        error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%d device keys failed: %v", len(e.FailedKeys), e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}
