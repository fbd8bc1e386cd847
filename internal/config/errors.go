package config

import (
	"errors"
	"fmt"
)

// ErrNoActiveConfig matches NoActiveConfigError via errors.Is.
var ErrNoActiveConfig = errors.New("no active threshold snapshot")

// NoActiveConfigError reports that the store holds no ACTIVE snapshot row.
type NoActiveConfigError struct{}

func (e *NoActiveConfigError) Error() string {
	return ErrNoActiveConfig.Error()
}

func (e *NoActiveConfigError) Is(target error) bool {
	return target == ErrNoActiveConfig
}

// ConfigIntegrityError reports that a stored snapshot does not hash to the
// value stored alongside it.
type ConfigIntegrityError struct {
	ConfigVersion string
	ExpectedHash  string
	ActualHash    string
	Cause         error // set when the stored thresholds could not be decoded
}

func (e *ConfigIntegrityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("threshold snapshot %q unreadable: %v", e.ConfigVersion, e.Cause)
	}
	return fmt.Sprintf("threshold snapshot %q hash mismatch: expected %s, got %s",
		e.ConfigVersion, e.ExpectedHash, e.ActualHash)
}

func (e *ConfigIntegrityError) Unwrap() error {
	return e.Cause
}
