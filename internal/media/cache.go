package media

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/mandalnilabja/pollinate/internal/observability"
)

// cacheKey is a BLAKE2b-256 digest of the input and every parameter that
// affects the output.
func cacheKey(op string, data []byte, maxW, maxH int, interval time.Duration) string {
	h, _ := blake2b.New256(nil) // nil key never errors
	h.Write([]byte(op))

	var params [24]byte
	binary.BigEndian.PutUint64(params[0:], uint64(maxW))
	binary.BigEndian.PutUint64(params[8:], uint64(maxH))
	binary.BigEndian.PutUint64(params[16:], uint64(interval))
	h.Write(params[:])
	h.Write(data)

	return hex.EncodeToString(h.Sum(nil))
}

func (p *Processor) lookup(op, key string) ([][]byte, bool) {
	if p.cache == nil {
		return nil, false
	}
	value, found := p.cache.Get(key)
	result := "miss"
	if found {
		result = "hit"
	}
	observability.MediaCacheLookups.WithLabelValues(op, result).Inc()
	return value, found
}

func (p *Processor) store(key string, value [][]byte) {
	if p.cache == nil {
		return
	}
	var cost int64
	for _, v := range value {
		cost += int64(len(v))
	}
	p.cache.Set(key, value, cost)
	p.cache.Wait()
}
