package domain

// CredentialVault caches the elevation password for the lifetime of the process.
// Implementations keep the secret sealed at rest in memory and only open it on Reveal.
type CredentialVault interface {
	// Store replaces any cached secret.
	Store(secret string) error

	// Reveal returns the cached secret, or false when nothing is cached.
	Reveal() (string, bool)

	// Forget drops the cached secret, e.g. after sudo rejected it.
	Forget()
}
