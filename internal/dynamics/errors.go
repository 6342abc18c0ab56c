package dynamics

import "fmt"

// WrongParamsError is a malformed-request rejection from Business Central.
// Response carries the raw error payload for the error ledger.
type WrongParamsError struct {
	Message  string
	Response interface{}
}

func (e *WrongParamsError) Error() string {
	return fmt.Sprintf("wrong params: %s", e.Message)
}

// InvalidTokenError means the refresh token was rejected; the stored
// credential must be expired so subsequent attempts fail fast.
type InvalidTokenError struct {
	Message  string
	Response interface{}
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid token: %s", e.Message)
}

// BulkPostError is a partial failure inside a bulk envelope; the positions
// slice names the failing line indexes.
type BulkPostError struct {
	Message   string
	Positions []int
	Response  interface{}
}

func (e *BulkPostError) Error() string {
	return fmt.Sprintf("bulk post failed for %d line(s): %s", len(e.Positions), e.Message)
}
