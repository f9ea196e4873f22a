/*
Copyright (C) 2026 Soundtap Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package content

import (
	"errors"
	"fmt"
)

// RestrictedError means the content exists but may not be played by this
// client. The condition is permanent: retrying the load will not help.
type RestrictedError struct {
	ID     ID
	Reason string
}

func (e *RestrictedError) Error() string {
	return fmt.Sprintf("content %s is restricted: %s", e.ID, e.Reason)
}

// TransportError wraps a network or I/O failure while fetching the stream.
type TransportError struct {
	ID  ID
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching content %s: %v", e.ID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FormatError means the stream's encoding cannot be played.
type FormatError struct {
	ID       ID
	Encoding string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("content %s has unsupported format %q", e.ID, e.Encoding)
}

// RightsError means a licensing or rights-management check failed.
type RightsError struct {
	ID     ID
	Reason string
}

func (e *RightsError) Error() string {
	return fmt.Sprintf("content %s rights check failed: %s", e.ID, e.Reason)
}

// Retryable reports whether a load error is worth a second attempt.
// Restricted and rights failures are permanent; everything else may be
// transient.
func Retryable(err error) bool {
	var restricted *RestrictedError
	var rights *RightsError
	if errors.As(err, &restricted) || errors.As(err, &rights) {
		return false
	}
	return true
}
