package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/nmogil/compliance-iq-sub003/core"
)

// Key prefixes for different data types
const (
	chunkRecordPrefix       = "chkrec"
	chunkJurisdictionPrefix = "chkrecj"
	scratchPrefix           = "scratch"
)

// makeChunkKey generates a key for a chunk record by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeJurisdictionKey generates a composite key for the jurisdiction index.
// Format: prefix:code:id. The ID is BigEndian so keys sort
// lexicographically.
func makeJurisdictionKey(code string, id core.ID) []byte {
	prefix := []byte(chunkJurisdictionPrefix + ":" + code + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialJurisdictionKey generates a prefix covering all index
// entries for one jurisdiction code.
func makePartialJurisdictionKey(code string) []byte {
	return []byte(chunkJurisdictionPrefix + ":" + code + ":")
}

// makeScratchKey generates a key for a batch-run scratch entry.
// Format: scratch:runID:key
func makeScratchKey(runID, key string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", scratchPrefix, runID, key))
}

// makePartialScratchKey generates a prefix covering every scratch
// entry belonging to one run.
func makePartialScratchKey(runID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", scratchPrefix, runID))
}
