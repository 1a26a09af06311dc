package domain

// CredentialBundle is the exchange API credential triple stored as an
// immutable version in the secret vault. It is never logged, never
// returned to any caller, and never written to the link registry —
// only the opaque resource name travels outside the vault.
type CredentialBundle struct {
	APIKey     string `json:"apiKey"`
	APISecret  string `json:"apiSecret"`
	Passphrase string `json:"passphrase"`
}

// Complete reports whether all three required sub-fields are present.
func (b CredentialBundle) Complete() bool {
	return b.APIKey != "" && b.APISecret != "" && b.Passphrase != ""
}
