package vectordb

import (
	"sort"
	"sync"
)

// keyLocks serializes writers per record path.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: map[string]*keyLock{}}
}

// lock acquires every distinct key in sorted order and returns the release function.
func (k *keyLocks) lock(keys ...string) func() {
	keys = distinct(keys)
	held := make([]*keyLock, len(keys))
	k.mu.Lock()
	for i, key := range keys {
		l, ok := k.locks[key]
		if !ok {
			l = &keyLock{}
			k.locks[key] = l
		}
		l.refs++
		held[i] = l
	}
	k.mu.Unlock()
	for _, l := range held {
		l.Lock()
	}
	return func() {
		for _, l := range held {
			l.Unlock()
		}
		k.mu.Lock()
		for i, key := range keys {
			if held[i].refs--; held[i].refs == 0 {
				delete(k.locks, key)
			}
		}
		k.mu.Unlock()
	}
}

func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func distinct(keys []string) []string {
	result := append([]string(nil), keys...)
	sort.Strings(result)
	j := 0
	for i, key := range result {
		if i > 0 && key == result[j-1] {
			continue
		}
		result[j] = key
		j++
	}
	return result[:j]
}
