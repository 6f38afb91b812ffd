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
	"context"

	"github.com/poiesic/taskvault/storage"
)

// Load decodes the value at path into a V.
// Bytes that do not decode yield a conversion error.
func Load[V any](ctx context.Context, m *Manager, h *Handle, path Path) (V, bool, error) {
	var v V
	data, found, err := m.LoadAtPath(ctx, h, path)
	if err != nil || !found {
		return v, false, err
	}
	if err := storage.Unmarshal(data, &v); err != nil {
		return v, false, storage.Conversion("document", "load", h.partition, err)
	}
	return v, true, nil
}

// Store encodes v and saves it at path.
func Store[V any](ctx context.Context, m *Manager, h *Handle, path Path, v V) error {
	data, err := storage.Marshal(v)
	if err != nil {
		return storage.Conversion("document", "store", h.partition, err)
	}
	return m.SaveAtPath(ctx, h, path, data)
}

// Update decodes the value at path, lets fn modify it and stores the result
// under the handle's write lock. found is false when no value exists yet.
// If fn fails nothing is committed.
func Update[V any](ctx context.Context, m *Manager, h *Handle, path Path, fn func(v *V, found bool) error) error {
	return m.UpdateAtPath(ctx, h, path, func(current []byte, found bool) ([]byte, error) {
		var v V
		if found {
			if err := storage.Unmarshal(current, &v); err != nil {
				return nil, storage.Conversion("document", "update", h.partition, err)
			}
		}
		if err := fn(&v, found); err != nil {
			return nil, err
		}
		data, err := storage.Marshal(v)
		if err != nil {
			return nil, storage.Conversion("document", "update", h.partition, err)
		}
		return data, nil
	})
}
