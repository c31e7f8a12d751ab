package oidc

import "github.com/al-bashkir/stable-portal/internal/session"

// fallbackName is shown when the provider returns no usable name claim.
const fallbackName = "User"

// nameClaims lists the claims tried for the display name, in order.
var nameClaims = []string{"name", "preferred_username", "email"}

// identityFromClaims builds an Identity from user-info claims.
// The display name is the first non-empty of name, preferred_username and
// email, falling back to a fixed label.
func identityFromClaims(claims map[string]interface{}) *session.Identity {
	id := &session.Identity{
		Name: fallbackName,
	}

	for _, claim := range nameClaims {
		if v := claimString(claims, claim); v != "" {
			id.Name = v
			break
		}
	}

	id.Email = claimString(claims, "email")
	id.Subject = claimString(claims, "sub")

	return id
}

// claimString returns the top-level claim key as a string.
// Missing and non-string claims yield "".
func claimString(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}
