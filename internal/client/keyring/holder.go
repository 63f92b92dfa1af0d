// Package keyring owns the lifetime of the master key within a client
// process and its handoff to the volatile session store.
package keyring

import (
	"sync/atomic"

	"github.com/dmitrijs2005/zkvault/internal/common"
	"github.com/dmitrijs2005/zkvault/internal/cryptox"
)

// Holder is the single slot for the active master key. Reads are lock free;
// cipher calls that already obtained the key finish even if Clear runs
// concurrently, but no call started after Clear can get it.
type Holder struct {
	key atomic.Pointer[cryptox.MasterKey]
}

func NewHolder() *Holder {
	return &Holder{}
}

// Set installs k as the active key.
func (h *Holder) Set(k *cryptox.MasterKey) {
	h.key.Store(k)
}

// Key implements cryptox.KeySource.
func (h *Holder) Key() (*cryptox.MasterKey, error) {
	k := h.key.Load()
	if k == nil {
		return nil, common.ErrKeyNotDerived
	}
	return k, nil
}

// Clear drops the active key.
func (h *Holder) Clear() {
	h.key.Store(nil)
}

// Active reports whether a key is installed.
func (h *Holder) Active() bool {
	return h.key.Load() != nil
}
