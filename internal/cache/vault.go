package cache

import "sync"

// Vault is a process-wide registry of caches offering coordinated
// freeze/unfreeze, used to take point-in-time-consistent snapshots
// across several caches during a single command.
type Vault struct {
	mu     sync.Mutex
	caches []*Cache
}

// NewVault builds an empty vault.
func NewVault() *Vault {
	return &Vault{}
}

// Register adds a cache to the vault's freeze/unfreeze scope.
func (v *Vault) Register(c *Cache) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.caches = append(v.caches, c)
}

// FreezeAll puts every registered cache into forced-cache mode.
func (v *Vault) FreezeAll() {
	v.mu.Lock()
	caches := append([]*Cache(nil), v.caches...)
	v.mu.Unlock()
	for _, c := range caches {
		c.freeze()
	}
}

// UnfreezeAll restores normal TTL behavior on every registered cache.
func (v *Vault) UnfreezeAll() {
	v.mu.Lock()
	caches := append([]*Cache(nil), v.caches...)
	v.mu.Unlock()
	for _, c := range caches {
		c.unfreeze()
	}
}
