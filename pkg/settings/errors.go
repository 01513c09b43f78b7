package settings

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrInvalidSetting = errors.New("settings: invalid value")
	ErrUnknownSetting = errors.New("settings: unknown setting")
)

// ValidationError reports the setting that failed to load or validate.
type ValidationError struct {
	Key string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("settings: %s: %v", e.Key, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
