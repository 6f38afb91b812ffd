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


// Package reconcile copies entities of one type between backends.
//
// It is used offline to rebuild the relational read index from the document
// store, or to seed a newly enabled backend. Writes that fail with a store
// error are retried with exponential backoff; other failures are reported
// without retrying.
package reconcile
