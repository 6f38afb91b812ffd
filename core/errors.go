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


package core

import "errors"

// Domain validation errors
var (
	// ErrMissingEndpoint indicates a relation without a parent or child ID.
	ErrMissingEndpoint = errors.New("relation requires parent and child")

	// ErrInvalidPreferenceKey indicates a preference feature, scope or item that cannot form a key.
	ErrInvalidPreferenceKey = errors.New("invalid preference key")

	// ErrEmptyName indicates a required name or title is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrInvalidTaskStatus indicates an unknown TaskStatus value.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrIndexOutOfRange indicates a reorder target outside the list bounds.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrTaskNotInList indicates a reorder of a task the list does not contain.
	ErrTaskNotInList = errors.New("task not in list")
)
