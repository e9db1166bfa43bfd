package editor

import "fmt"

var (
	// ErrClassification is returned when free text could not be turned into a command:
	// the completion call failed, returned no JSON object, or returned JSON of the wrong shape.
	ErrClassification = fmt.Errorf("could not understand the command")

	// ErrUnknownCommandType is returned for a command type outside the closed taxonomy.
	ErrUnknownCommandType = fmt.Errorf("unknown command type")

	// ErrUnknownAction is returned when an action is not in its type's vocabulary.
	ErrUnknownAction = fmt.Errorf("unknown action")

	// ErrInvalidParameter is returned when a parameter is present but malformed, or a required one is missing.
	ErrInvalidParameter = fmt.Errorf("invalid command parameter")

	// ErrExternalService marks failures from the catalog or completion oracle used inside a strategy.
	// Strategies recover from it; it only reaches callers through logs.
	ErrExternalService = fmt.Errorf("external service failed")
)
