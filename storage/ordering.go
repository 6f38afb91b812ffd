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
	"cmp"
	"slices"
	"time"
)

// CreationTimer is implemented by entities that record their creation time.
type CreationTimer interface {
	Created() time.Time
}

// SortByCreation orders entities oldest first, then by ID.
// Entities without a creation time are ordered by ID only.
func SortByCreation[T Entity](items []T) {
	slices.SortStableFunc(items, func(a, b T) int {
		if ca, ok := any(a).(CreationTimer); ok {
			if cb, ok := any(b).(CreationTimer); ok {
				if c := ca.Created().Compare(cb.Created()); c != 0 {
					return c
				}
			}
		}
		return cmp.Compare(a.EntityID(), b.EntityID())
	})
}
