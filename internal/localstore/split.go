package localstore

// SplitStore sends a fixed set of keys to one store and everything else to another.
// It is used to keep bearer tokens in the OS keyring while the rest of the
// session lives in the regular store.
type SplitStore struct {
	base    Store
	secrets Store
	routed  map[string]bool
}

// NewSplitStore routes keys to secrets and all other keys to base.
func NewSplitStore(base, secrets Store, keys ...string) *SplitStore {
	routed := make(map[string]bool, len(keys))
	for _, k := range keys {
		routed[k] = true
	}
	return &SplitStore{base: base, secrets: secrets, routed: routed}
}

func (s *SplitStore) storeFor(key string) Store {
	if s.routed[key] {
		return s.secrets
	}
	return s.base
}

func (s *SplitStore) Get(key string) (string, bool, error) {
	return s.storeFor(key).Get(key)
}

func (s *SplitStore) Set(key, value string) error {
	return s.storeFor(key).Set(key, value)
}

func (s *SplitStore) Remove(key string) error {
	return s.storeFor(key).Remove(key)
}
