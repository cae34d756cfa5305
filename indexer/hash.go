package indexer

import (
	"strconv"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Hash returns the content fingerprint stored in EmbeddingRecord.Hash.
func Hash(data []byte) (string, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return "", err
	}
	if _, err = h.Write(data); err != nil {
		return "", err
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}
