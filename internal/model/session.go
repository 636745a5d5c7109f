package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role gates which catalog and booking views are reachable.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

// ParseRole normalizes role strings such as "admin" or "ROLE_CUSTOMER".
func ParseRole(s string) (Role, error) {
	r := strings.ToUpper(strings.TrimSpace(s))
	r = strings.TrimPrefix(r, "ROLE_")
	switch Role(r) {
	case RoleAdmin, RoleCustomer:
		return Role(r), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

var ErrPartialSession = errors.New("session is missing token, role or user id")

// Session is the current identity. It is either fully authenticated or anonymous.
type Session struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// IsAuthenticated reports whether token, role and user id are all present.
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.Role != "" && s.UserID > 0
}

// IsAnonymous reports whether no identity field is set.
func (s Session) IsAnonymous() bool {
	return s.Token == "" && s.Role == "" && s.UserID == 0
}

// Validate rejects partial sessions.
func (s Session) Validate() error {
	if s.IsAuthenticated() || s.IsAnonymous() {
		return nil
	}
	return ErrPartialSession
}

// Expired reports whether the token carries an expiry that has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// IsAdmin is a presentation-level check only.
func (s Session) IsAdmin() bool {
	return s.IsAuthenticated() && s.Role == RoleAdmin
}

// Credentials is the login form payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is the register form payload.
type Profile struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	ContactNo string `json:"contactNo"`
	Role      Role   `json:"role"`
}

// Credentials returns the login payload for the same account.
func (p Profile) Credentials() Credentials {
	return Credentials{Email: p.Email, Password: p.Password}
}

// LoginPayload is the raw auth collaborator response. Its shape is loose:
// userId may be a number or a string and role may carry a prefix.
type LoginPayload struct {
	Token  string     `json:"token"`
	Role   string     `json:"role"`
	UserID FlexibleID `json:"userId"`
}

// FlexibleID accepts a JSON number or a numeric string.
type FlexibleID int64

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", s)
		}
		*id = FlexibleID(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	v, err := n.Int64()
	if err != nil {
		return fmt.Errorf("invalid id %s", n)
	}
	*id = FlexibleID(v)
	return nil
}
