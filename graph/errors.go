package graph

import "fmt"

// ParseError is fatal to the calling subroutine: the document is static, so a
// failed parse must fail the branch rather than be retried.
type ParseError struct {
	Err error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("error parsing graph definition: %v", e.Err)
}

func (e ParseError) Unwrap() error {
	return e.Err
}
