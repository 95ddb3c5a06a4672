package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrAlreadyProcessed is returned when a conditional status update finds
	// the lead no longer in the expected prior status.
	ErrAlreadyProcessed = errors.New("lead already processed")
)
