package domain

import "time"

// LinkRecord is the durable mapping from an external chat-platform user
// identity to the secret resource holding their trading credentials.
// At most one record exists per UserID; records are never physically
// deleted — unlinking sets RevokedAt.
type LinkRecord struct {
	UserID    string     `json:"user_id"`
	SecretRef string     `json:"secret_ref"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Active reports whether the link may gate trading. A non-nil RevokedAt
// is authoritative even if the secret resource still holds versions.
func (r *LinkRecord) Active() bool {
	return r != nil && r.RevokedAt == nil
}
