package testutil

// Vault keys for use in tests only. Both resolve to 32 bytes of
// secretbox key material.
const (
	TestVaultKey    = "12345678901234567890123456789012"
	TestVaultKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
)
