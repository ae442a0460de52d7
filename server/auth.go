package server

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/shaunie2fly/shellwire/protocol"
)

// authenticate checks the requested auth type against the server's
// configured type, then dispatches to the matching verifier.
func authenticate(cfg AuthConfig, req protocol.AuthRequestPayload) (ok bool, failReason string) {
	configured := protocol.AuthType(cfg.Type)
	if req.AuthType != configured {
		return false, "type mismatch"
	}

	switch req.AuthType {
	case protocol.AuthNone:
		return true, ""
	case protocol.AuthBasic:
		return authenticateBasic(cfg, req.Username, req.Password)
	case protocol.AuthToken:
		if cfg.TokenValidator == nil || !cfg.TokenValidator(req.Token) {
			return false, "invalid token"
		}
		return true, ""
	default:
		return false, "type mismatch"
	}
}

func authenticateBasic(cfg AuthConfig, username, password string) (bool, string) {
	want, ok := cfg.Users[username]
	if !ok {
		return false, "Invalid password"
	}
	if hashPassword(password) != want {
		return false, "Invalid password"
	}
	return true, ""
}

// hashPassword returns the lowercase hex SHA-256 digest of password, the
// form BASIC auth credentials are stored and compared in.
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
