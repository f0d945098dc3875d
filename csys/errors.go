// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package csys

import (
	"errors"
	"fmt"
)

// IntegrityError is a fatal decode error for the current CSystem:
// handle index out of range, field-record walk overruns object
// payload boundary, or a hash collision in a pool (§7 "Integrity
// error"). The decode is abandoned; partially constructed objects
// are discarded by the caller.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string { return "csys: integrity error: " + e.Msg }

func newIntegrityErrorf(format string, args ...any) *IntegrityError {
	return &IntegrityError{Msg: fmt.Sprintf(format, args...)}
}

// ErrTrailingBytes is a format error: the decode loop finished before
// consuming the system's entire payload (§4.8 step 5, "Assert
// stream.position == payload_end").
var ErrTrailingBytes = errors.New("csys: trailing bytes after decoding object graph")
