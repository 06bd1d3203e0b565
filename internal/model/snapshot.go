package model

// Credential is a portal login pair. The portal identifies users by a
// numeric id rather than a name.
type Credential struct {
	Username int64
	Password string
}

// Snapshot is the persisted last-known state of one account: its
// credential, optional notification sink, and the charge/payment lists as
// of the last successful sync. The lists are replaced wholesale after each
// successful cycle; a failed cycle must leave the persisted snapshot
// untouched.
type Snapshot struct {
	Username          int64     `json:"username"`
	Password          string    `json:"password"`
	DiscordWebhookURL string    `json:"discord_webhook_url,omitempty"`
	Charges           []Charge  `json:"charges"`
	Payments          []Payment `json:"payments"`
}

// Credential returns the login pair stored in the snapshot.
func (s *Snapshot) Credential() Credential {
	return Credential{Username: s.Username, Password: s.Password}
}
