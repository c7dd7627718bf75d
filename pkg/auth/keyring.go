package auth

// Keyring is a static API-key allow-list, fixed at startup. Key expiry is a
// deliberate extension point, not implemented here.
type Keyring struct {
	keys map[string]struct{}
}

func NewKeyring(keys []string) *Keyring {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		m[k] = struct{}{}
	}
	return &Keyring{keys: m}
}

// Authorize reports whether key is on the allow-list. Fails closed: the
// empty key is never authorized.
func (k *Keyring) Authorize(key string) bool {
	if key == "" {
		return false
	}
	_, ok := k.keys[key]
	return ok
}
