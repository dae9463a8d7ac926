package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the identity payload carried by Whispey tokens.
//
// SSO tokens minted by the agent platform put the email under "user_email";
// dashboard login tokens historically used "email". Both are read, and
// Email is normalized after verification.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string `json:"user_id"`
	Email       string `json:"user_email"`
	LegacyEmail string `json:"email,omitempty"`

	// AgentInfo is caller-supplied context, e.g. {"agent_id": "...", "agent_name": "..."}.
	// The schema is documented, not enforced; consumers must type-check values.
	AgentInfo map[string]any `json:"agent_info,omitempty"`
}

// Identity is what an issuer wants embedded in a token.
type Identity struct {
	UserID    string
	Email     string
	AgentInfo map[string]any
}

// AgentString reads a string entry from AgentInfo, ignoring other types.
func (c Claims) AgentString(key string) (string, bool) {
	if c.AgentInfo == nil {
		return "", false
	}
	s, ok := c.AgentInfo[key].(string)
	return s, ok
}

func (c *Claims) normalize() {
	if c.UserID == "" {
		c.UserID = c.Subject
	}
	if c.Email == "" {
		c.Email = c.LegacyEmail
	}
	c.LegacyEmail = ""
}
