package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Roles carried by a connect ticket. Hosts report combat outcomes; admins
// may force phase and round transitions.
const (
	RolePlayer = "player"
	RoleHost   = "host"
	RoleAdmin  = "admin"
)

// Claims are the verified contents of a connect ticket.
type Claims struct {
	PlayerID int64
	Role     string
	Expiry   time.Time
}

// MintTicket issues "playerID:role:expiryUnix:sig" signed with the shared
// secret. The issuing side (launcher, ops tooling) calls this; the server
// only validates.
func MintTicket(playerID int64, role string, ttl time.Duration, secret string) string {
	exp := time.Now().Add(ttl).Unix()
	body := fmt.Sprintf("%d:%s:%d", playerID, role, exp)
	sig := hex.EncodeToString(hmacSHA256([]byte(secret), []byte(body)))
	return body + ":" + sig
}

// ValidateTicket checks signature and expiry and returns the claims.
func ValidateTicket(ticket, secret string) (Claims, error) {
	parts := strings.Split(ticket, ":")
	if len(parts) != 4 {
		return Claims{}, fmt.Errorf("malformed ticket")
	}

	playerID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || playerID == 0 {
		return Claims{}, fmt.Errorf("invalid player id")
	}

	role := parts[1]
	switch role {
	case RolePlayer, RoleHost, RoleAdmin:
	default:
		return Claims{}, fmt.Errorf("unknown role %q", role)
	}

	exp, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid expiry: %w", err)
	}
	if time.Now().After(time.Unix(exp, 0)) {
		return Claims{}, fmt.Errorf("ticket expired")
	}

	body := strings.Join(parts[:3], ":")
	want := hmacSHA256([]byte(secret), []byte(body))
	got, err := hex.DecodeString(parts[3])
	if err != nil || !hmac.Equal(want, got) {
		return Claims{}, fmt.Errorf("signature mismatch")
	}

	return Claims{PlayerID: playerID, Role: role, Expiry: time.Unix(exp, 0)}, nil
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
