// Package media issues and verifies the narrowly-scoped tokens that
// authorize retrieval of binary objects.
//
// Media tokens travel as query-string credentials so browsers can load
// protected images from plain <img> tags without an Authorization header.
// The file-serving path verifies them here and then checks the scope against
// the requested object.
package media

import (
	"time"

	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
	"github.com/jschmidtnj/ewaab-sub000/pkg/token"
)

// Issuer mints media-access tokens for authenticated principals
type Issuer struct {
	codec *token.Codec
}

// NewIssuer creates a media token issuer over the shared codec
func NewIssuer(codec *token.Codec) *Issuer {
	return &Issuer{codec: codec}
}

// Issue mints a token scoped to one object id, or, with an empty mediaID, to
// the bearer's own profile media. A zero ttl produces a non-expiring token.
func (i *Issuer) Issue(p principal.Principal, mediaID string, ttl time.Duration) (string, error) {
	return i.codec.SignMedia(p.ID, string(p.Role), mediaID, ttl)
}

// Verify checks a presented media token. Tokens of any other purpose fail
// with token.ErrMalformedPayload.
func (i *Issuer) Verify(tok string) (*token.MediaClaims, error) {
	return i.codec.VerifyMedia(tok)
}

// Authorized reports whether verified claims cover the requested object. A
// scoped token covers exactly its object; an unscoped token covers only the
// bearer's own profile media, identified by the owning account id.
func Authorized(claims *token.MediaClaims, requestedID, ownerID string) bool {
	if claims.MediaID != "" {
		return claims.MediaID == requestedID
	}
	return claims.ID == ownerID
}
