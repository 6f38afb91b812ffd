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


// Package document implements the document-store side of taskvault.
//
// Each partition (a project, a user, or core.GlobalPartition for unscoped
// entities) is one document: a tree of named containers holding CBOR values.
// A Manager keeps at most one open Handle per partition and commits every
// mutation to its Engine as a new snapshot plus a change-log entry.
//
// Layout inside a partition document:
//
//	collections/<collection>                 id -> entity map
//	preferences/<feature>/<scope>/<item>     one preference
//
// Adapter maps the storage.Adapter contract onto that layout.
package document
