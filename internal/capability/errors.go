package capability

import "errors"

// Registry errors.
var (
	// ErrNotFound is returned when a capability is not registered.
	ErrNotFound = errors.New("capability not found")

	// ErrNameEmpty is returned when a descriptor has no name.
	ErrNameEmpty = errors.New("capability name cannot be empty")

	// ErrInvokeNil is returned when a capability has no executor.
	ErrInvokeNil = errors.New("capability executor cannot be nil")

	// ErrMissingRequiredParam is returned when a required parameter is missing.
	ErrMissingRequiredParam = errors.New("missing required parameter")

	// ErrInvalidParamType is returned when a parameter has the wrong type.
	ErrInvalidParamType = errors.New("invalid parameter type")

	// ErrInvalidEnumValue is returned when a parameter is outside its enum.
	ErrInvalidEnumValue = errors.New("value not permitted by enum")
)
