// Package auth checks the static API token shared by the transports.
package auth

import (
	"crypto/subtle"
	"strings"
)

const bearerPrefix = "Bearer "

// TokenMatches compares a presented credential with the expected token in
// constant time, stripping an optional bearer prefix.
func TokenMatches(presented, validToken string) bool {
	presented = strings.TrimPrefix(presented, bearerPrefix)
	if presented == "" || validToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(validToken)) == 1
}
