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


package document

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrEmptyPath is returned when a mutation targets the document root.
	ErrEmptyPath = errors.New("path must have at least one segment")

	// ErrInvalidPath is returned when a segment contains the separator.
	ErrInvalidPath = errors.New("path segment contains separator")
)

const pathSeparator = "/"

// Path addresses a value inside a partition document.
type Path []string

// ParsePath splits a slash-separated path.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return strings.Split(s, pathSeparator)
}

// String joins the segments with slashes.
func (p Path) String() string {
	return strings.Join(p, pathSeparator)
}

// Child returns a new path with segments appended.
func (p Path) Child(segments ...string) Path {
	child := make(Path, 0, len(p)+len(segments))
	child = append(child, p...)
	return append(child, segments...)
}

// HasPrefix reports whether p equals prefix or lies below it.
func (p Path) HasPrefix(prefix Path) bool {
	return len(p) >= len(prefix) && slices.Equal(p[:len(prefix)], prefix)
}

func (p Path) validate() error {
	if len(p) == 0 {
		return ErrEmptyPath
	}
	for _, seg := range p {
		if strings.Contains(seg, pathSeparator) {
			return ErrInvalidPath
		}
	}
	return nil
}
