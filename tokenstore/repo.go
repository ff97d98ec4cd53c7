package tokenstore

import (
	"context"
	"time"
)

// TokenRecord is the per-user OAuth credential set as issued by the
// upstream authorization server. One record per user identifier; the
// identifier is the opaque key the low-code app round-trips through the
// OAuth state parameter.
type TokenRecord struct {
	UserID       string    // Opaque, externally supplied key
	AccessToken  string    // Short-lived bearer credential
	RefreshToken string    // Used to mint a new access token; may or may not rotate
	ExpiresIn    int       // Validity in seconds declared at issuance
	Timestamp    time.Time // When the last exchange/refresh succeeded
}

// Repo manages persistence of TokenRecords keyed by user identifier.
// Upsert overwrites the whole record: a refresh rewrites access token,
// refresh token, expiry, and timestamp as one write.
type Repo interface {
	Get(ctx context.Context, userID string) (*TokenRecord, error)
	Upsert(ctx context.Context, record *TokenRecord) error
	List(ctx context.Context) ([]*TokenRecord, error)
}
