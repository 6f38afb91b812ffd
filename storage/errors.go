// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/taskvault/core"
)

// ErrorKind classifies storage failures.
type ErrorKind int

const (
	// KindNotFound marks an expected-present entity that is absent.
	KindNotFound ErrorKind = iota + 1
	// KindValidation marks caller-supplied state that violates an invariant.
	KindValidation
	// KindStore marks a failure of the underlying engine.
	KindStore
	// KindConversion marks stored bytes that cannot be decoded.
	KindConversion
	// KindInvalidOperation marks a capability the backend or entity type does not support.
	KindInvalidOperation
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrValidation indicates that the supplied state is invalid.
	ErrValidation = errors.New("validation failed")

	// ErrStore indicates a backend engine failure.
	ErrStore = errors.New("store failure")

	// ErrConversion indicates a serialization/deserialization failure.
	ErrConversion = errors.New("conversion failed")

	// ErrInvalidOperation indicates an unsupported operation.
	ErrInvalidOperation = errors.New("invalid operation")

	errPartitionRequired  = errors.New("partition is required for scoped entities")
	errPartitionForbidden = errors.New("partition must be empty for global entities")
	errPartitionMismatch  = errors.New("entity belongs to a different partition")
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindStore:
		return "store"
	case KindConversion:
		return "conversion"
	case KindInvalidOperation:
		return "invalid operation"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	case KindStore:
		return ErrStore
	case KindConversion:
		return ErrConversion
	case KindInvalidOperation:
		return ErrInvalidOperation
	}
	return nil
}

// Error is the typed error returned by adapters and repositories.
// errors.Is matches it against the sentinel of its kind; Unwrap exposes the cause.
type Error struct {
	Kind      ErrorKind
	Op        string
	Entity    string
	Partition core.ID
	ID        core.ID
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Entity != "" {
		b.WriteString(e.Entity)
		b.WriteString(" ")
	}
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Partition != "" {
		fmt.Fprintf(&b, " partition=%s", e.Partition)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " id=%s", e.ID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the kind of a storage error, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// NotFound builds a KindNotFound error.
func NotFound(entity, op string, partition, id core.ID) error {
	return &Error{Kind: KindNotFound, Op: op, Entity: entity, Partition: partition, ID: id}
}

// Validation builds a KindValidation error around cause.
func Validation(entity, op string, cause error) error {
	return &Error{Kind: KindValidation, Op: op, Entity: entity, Err: cause}
}

// StoreFailure builds a KindStore error preserving cause.
func StoreFailure(entity, op string, partition core.ID, cause error) error {
	return &Error{Kind: KindStore, Op: op, Entity: entity, Partition: partition, Err: cause}
}

// Conversion builds a KindConversion error preserving cause.
func Conversion(entity, op string, partition core.ID, cause error) error {
	return &Error{Kind: KindConversion, Op: op, Entity: entity, Partition: partition, Err: cause}
}

// InvalidOperation builds a KindInvalidOperation error.
func InvalidOperation(entity, op string, reason string) error {
	return &Error{Kind: KindInvalidOperation, Op: op, Entity: entity, Err: errors.New(reason)}
}
