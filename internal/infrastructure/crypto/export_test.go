package crypto

import "fmt"

// SprintVault exposes the sealed bytes to the external test package.
func SprintVault(v *SealedVault) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fmt.Sprintf("%+v %s", v.sealed, string(v.sealed))
}
