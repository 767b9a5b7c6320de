package registry

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// bufferPool amortizes the allocation cost of gob-encoding connection
// records, mirroring the Store adapter's own encoding pool (spec §4.5
// grounding).
var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func encodeConnection(rec ghost.ConnectionRecord) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := gob.NewEncoder(buf).Encode(rec); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decodeConnection(data []byte) (ghost.ConnectionRecord, error) {
	var rec ghost.ConnectionRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return ghost.ConnectionRecord{}, err
	}
	return rec, nil
}

func connectionKey(id string) string {
	return "connection:" + id
}
