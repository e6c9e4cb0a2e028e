package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-entrada"
	"github.com/rs/xid"
)

const (
	usernameMinLen  = 3
	usernameMaxLen  = 24
	usernameProbeAt = 9999
)

type usernameChecker interface {
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

// AllocateUsername derives a sanitized, unique username from payload hints.
//
// Priority for the base candidate:
//  1. the payload's username field
//  2. first/given name plus the first letter of the family name
//  3. the local part of the email address
//  4. a random token
//
// The base is lowercased, stripped to [a-z0-9_], padded to three characters,
// and capped at 24; on collision, numeric suffixes 1..9999 are probed. The
// uniqueness check is a read-then-write race window; the users table must
// carry a unique constraint on the username column as the authoritative
// guard.
func AllocateUsername(ctx context.Context, payload entrada.Payload, fields entrada.FieldMap, users usernameChecker) (string, error) {
	preferred := fields.ExtractString(payload, "username")
	if strings.TrimSpace(preferred) == "" {
		preferred = generateUsername(payload, fields)
	}

	base := sanitizeUsername(preferred)
	if base == "" {
		base = "user"
	}

	for len(base) < usernameMinLen {
		base += "x"
	}

	if len(base) > usernameMaxLen {
		base = base[:usernameMaxLen]
	}

	taken, err := users.UsernameTaken(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	for i := 1; i <= usernameProbeAt; i++ {
		suffix := fmt.Sprintf("%d", i)
		candidate := base
		if len(candidate)+len(suffix) > usernameMaxLen {
			candidate = candidate[:usernameMaxLen-len(suffix)]
		}
		candidate += suffix

		taken, err := users.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "user" + randomToken(8), nil
}

func generateUsername(payload entrada.Payload, fields entrada.FieldMap) string {
	firstName := strings.TrimSpace(fields.ExtractString(payload, "first_name"))
	lastName := strings.TrimSpace(fields.ExtractString(payload, "last_name"))

	if firstName != "" {
		if lastName != "" {
			return firstName + string([]rune(lastName)[:1])
		}
		return firstName
	}

	if email := fields.ExtractString(payload, "email"); email != "" {
		if local := strings.SplitN(email, "@", 2)[0]; local != "" {
			return local
		}
	}

	return "user_" + randomToken(8)
}

func sanitizeUsername(username string) string {
	username = strings.ToLower(strings.TrimSpace(username))
	var b strings.Builder
	b.Grow(len(username))
	for _, r := range username {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func randomToken(n int) string {
	token := xid.New().String()
	if n > 0 && n < len(token) {
		return token[len(token)-n:]
	}
	return token
}
