// Package token provides signing and verification of the compact, expiring
// tokens used across the EWAAB platform.
//
// # Overview
//
// Every credential the platform issues is an HS256 JWT carrying a typed
// payload plus a mandatory purpose discriminator. Six purposes exist: access,
// refresh, media, verifyEmail, invite, and passwordReset. A token signed for
// one purpose never verifies as another.
//
// # Usage Example
//
// Sign and verify an access token:
//
//	codec := token.NewCodec(creds)
//	tok, err := codec.SignAccess("user-id", "user", true, token.AccessTokenTTL)
//	claims, err := codec.VerifyAccess(tok)
//
// Handle verification failures:
//
//	claims, err := codec.VerifyAccess(tok)
//	switch {
//	case errors.Is(err, token.ErrExpiredToken):
//		// client should refresh
//	case errors.Is(err, token.ErrInvalidToken):
//		// tampered or not ours
//	}
//
// # Secret Rotation
//
// The codec reads the signing secret and issuer through a CredentialsProvider
// on every sign/verify call, so rotating the secret takes effect immediately
// without restarting the process. Tokens signed under the previous secret stop
// verifying at that point.
//
// # Related Packages
//
//   - pkg/principal: derives request principals from access tokens
//   - pkg/session: refresh token rotation and revocation
//   - pkg/media: media-access token scoping
package token
