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


package badger

import (
	"bytes"
	"encoding/binary"

	"github.com/poiesic/taskvault/core"
)

// Key prefixes for different data types
const (
	docSnapshotPrefix = "docsnap:"
	docChangePrefix   = "docchg:"
	docChangeSeq      = "docchgseq"
)

// makeSnapshotKey generates the key holding a partition's latest document snapshot.
// Format: prefix<partition>
func makeSnapshotKey(partition core.ID) []byte {
	return append([]byte(docSnapshotPrefix), partition...)
}

// makeChangeKey generates a key for one change-log entry.
// Format: prefix<partition>:<seq>
func makeChangeKey(partition core.ID, seq uint64) []byte {
	prefix := makePartialChangeKey(partition)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makePartialChangeKey generates the prefix shared by a partition's change-log entries.
// Format: prefix<partition>:
func makePartialChangeKey(partition core.ID) []byte {
	buf := append([]byte(docChangePrefix), partition...)
	return append(buf, ':')
}

// parseChangeSeq extracts the sequence number from a change key.
func parseChangeSeq(key []byte) (uint64, bool) {
	if len(key) < 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(key)-8:]), true
}

// parseSnapshotPartition extracts the partition from a snapshot key.
func parseSnapshotPartition(key []byte) (core.ID, bool) {
	rest, ok := bytes.CutPrefix(key, []byte(docSnapshotPrefix))
	if !ok {
		return "", false
	}
	return core.ID(rest), true
}
