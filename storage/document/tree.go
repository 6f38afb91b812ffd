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
	"bytes"
	"maps"
	"slices"
)

// node is one level of a partition document.
type node struct {
	Value    []byte           `cbor:"1,keyasint,omitempty"`
	HasValue bool             `cbor:"2,keyasint,omitempty"`
	Children map[string]*node `cbor:"3,keyasint,omitempty"`
}

func newNode() *node {
	return &node{}
}

func (n *node) lookup(path Path) *node {
	cur := n
	for _, seg := range path {
		if cur.Children == nil {
			return nil
		}
		next, ok := cur.Children[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// get returns a copy of the value at path.
func (n *node) get(path Path) ([]byte, bool) {
	target := n.lookup(path)
	if target == nil || !target.HasValue {
		return nil, false
	}
	if target.Value == nil {
		return []byte{}, true
	}
	return bytes.Clone(target.Value), true
}

// put stores a copy of value at path, creating intermediate containers.
func (n *node) put(path Path, value []byte) {
	cur := n
	for _, seg := range path {
		if cur.Children == nil {
			cur.Children = make(map[string]*node)
		}
		next, ok := cur.Children[seg]
		if !ok {
			next = newNode()
			cur.Children[seg] = next
		}
		cur = next
	}
	cur.Value = bytes.Clone(value)
	cur.HasValue = true
}

// remove deletes the value at path and prunes containers left empty.
// Reports whether a value was present.
func (n *node) remove(path Path) bool {
	if len(path) == 0 {
		return false
	}
	child, ok := n.Children[path[0]]
	if !ok {
		return false
	}
	var removed bool
	if len(path) == 1 {
		removed = child.HasValue
		child.Value = nil
		child.HasValue = false
	} else {
		removed = child.remove(path[1:])
	}
	if !child.HasValue && len(child.Children) == 0 {
		delete(n.Children, path[0])
	}
	return removed
}

// children returns the sorted names directly below path.
func (n *node) children(path Path) []string {
	target := n.lookup(path)
	if target == nil || len(target.Children) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(target.Children))
}
