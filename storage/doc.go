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


// Package storage defines the persistence contract shared by every backend.
//
// The package holds no engine code. It provides:
//
//   - Adapter: the CRUD contract implemented by the relational and
//     document-store adapters
//   - Entity, Partitioned, SoftDeletable, Relation: capability interfaces
//     implemented by the domain records in package core
//   - EntityType: per-type descriptors (collection name, partition scope)
//   - Error: the typed error returned by adapters and repositories
//   - Marshal/Unmarshal: the CBOR codec used for document-store values
//
// # Partitions
//
// Project-scoped entities are addressed by (project ID, entity ID) and
// user-scoped preferences by (user ID, key). Global entities such as projects
// and users take core.NoPartition. EntityType.BindPartition enforces this on
// every save.
//
// # Errors
//
// Every error produced by an adapter is a *Error. Match it by kind:
//
//	if errors.Is(err, storage.ErrNotFound) {
//	    ...
//	}
//
// The engine cause stays reachable through errors.Unwrap.
//
// # Context Support
//
// All adapter methods accept context.Context for cancellation
// and timeout support.
package storage
