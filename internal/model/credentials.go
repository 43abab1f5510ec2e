package model

// CredentialKind tags a credential variant. Strategies are registered
// against a kind and selected without reflection.
type CredentialKind string

const (
	CredentialUsernamePassword CredentialKind = "username-password"
	CredentialEmailPassword    CredentialKind = "email-password"
)

// Credentials is the tagged union consumed by authentication strategies.
type Credentials interface {
	Kind() CredentialKind
}

// UsernamePasswordCredentials carries a username (or an email used as the
// login identifier) and the raw password.
type UsernamePasswordCredentials struct {
	Username string
	Password string
}

func (UsernamePasswordCredentials) Kind() CredentialKind { return CredentialUsernamePassword }

// EmailPasswordCredentials carries an email address and the raw password.
type EmailPasswordCredentials struct {
	Email    string
	Password string
}

func (EmailPasswordCredentials) Kind() CredentialKind { return CredentialEmailPassword }
