package freeagent

// TokenResponse represents the response from the FreeAgent token
// endpoint. This is the standard OAuth2 token endpoint response format
// as defined in RFC 6749, for both the authorization_code and
// refresh_token grants.
type TokenResponse struct {
	// AccessToken is the opaque bearer credential for resource calls.
	// Usage: "Authorization: Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque credential used to mint a new access
	// token. FreeAgent does not always rotate it: on a refresh grant
	// this field may be absent, in which case the previous refresh
	// token remains valid and must be kept.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType indicates how to use the access token (always "bearer").
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in,omitempty"`
}
