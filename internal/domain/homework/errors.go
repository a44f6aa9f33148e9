// internal/domain/homework/errors.go
package homework

import (
	"errors"
	"fmt"
)

var ErrHomeworksMissing = errors.New(`response has no "homeworks" key`)
var ErrHomeworksNotList = errors.New(`"homeworks" is not a list`)
var ErrMalformedSubmission = errors.New("submission is not a JSON object")

// FetchError is returned when the review API could not be queried or its
// answer could not be decoded.
type FetchError struct {
	Op         string // "request", "status" or "decode"
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 && e.Err == nil {
		return fmt.Sprintf("homework api %s: unexpected status code %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("homework api %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ContractError means a submission record lacks a field the bot needs, or
// the field has an unexpected type.
type ContractError struct {
	Key string
	Err error
}

func (e *ContractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission key %q has unexpected type: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("submission key %q is missing", e.Key)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}
