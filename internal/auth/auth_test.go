package auth

import (
	"strings"
	"testing"
	"time"
)

const secret = "test-secret"

func TestTicketRoundTrip(t *testing.T) {
	ticket := MintTicket(42, RoleHost, time.Minute, secret)
	claims, err := ValidateTicket(ticket, secret)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.PlayerID != 42 || claims.Role != RoleHost {
		t.Fatalf("claims: %+v", claims)
	}
}

func TestTicketRejections(t *testing.T) {
	good := MintTicket(7, RolePlayer, time.Minute, secret)

	cases := []struct {
		name   string
		ticket string
	}{
		{"expired", MintTicket(7, RolePlayer, -time.Minute, secret)},
		{"wrong secret", MintTicket(7, RolePlayer, time.Minute, "other")},
		{"malformed", "not-a-ticket"},
		{"unknown role", strings.Replace(good, ":player:", ":root:", 1)},
		{"tampered id", strings.Replace(good, "7:", "8:", 1)},
		{"empty", ""},
	}
	for _, c := range cases {
		if _, err := ValidateTicket(c.ticket, secret); err == nil {
			t.Errorf("%s: ticket should be rejected", c.name)
		}
	}
}
