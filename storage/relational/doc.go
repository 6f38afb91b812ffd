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


// Package relational implements the relational side of taskvault with GORM.
//
// Each entity type has one table keyed by (partition_id, id). Global entities
// store an empty partition_id. SQLite is served by the pure-Go ncruces driver
// through gormlite; PostgreSQL through gorm.io/driver/postgres.
//
//	db, err := relational.Open(relational.DriverSQLite, "file:tasks.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//	tasks := relational.NewAdapter(db, storage.TaskType, relational.TaskMapping)
package relational
