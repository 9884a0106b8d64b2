package auth

import "github.com/pkg/errors"

// Credentials identify the user a Manager acts for.
type Credentials struct {
	Username          string
	Password          string
	ProjectName       string
	UserDomainName    string
	ProjectDomainName string
	// Token, when set, is exchanged for a scoped token instead of using a password.
	Token string
}

// Validate checks that the credentials can be used to authenticate.
func (c Credentials) Validate() error {
	if c.Token != "" {
		return nil
	}
	if c.Username == "" || c.Password == "" {
		return errors.New("credentials require a username and password, or a token")
	}
	return nil
}
