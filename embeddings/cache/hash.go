package cache

import (
	"github.com/minio/highwayhash"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Hash returns the cache key of text embedded under namespace.
func Hash(namespace, text string) (uint64, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	if _, err = h.Write([]byte(namespace)); err != nil {
		return 0, err
	}
	if _, err = h.Write([]byte{0}); err != nil {
		return 0, err
	}
	if _, err = h.Write([]byte(text)); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
