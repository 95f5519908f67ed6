// Package token decodes the payload of the backend's bearer tokens.
//
// Tokens are never verified here: the backend re-validates the token on
// every API call, so the client only needs the claims to render the session.
package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dealbook-dev/dealbook/internal/models"
)

// ErrDecode is returned for any token whose payload cannot be read.
var ErrDecode = errors.New("token: cannot decode payload")

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Claims is the payload of a backend bearer token. Each field is decoded on
// its own; a field of an unexpected type is left empty.
type Claims struct {
	ID         string
	Email      string
	FirstName  string
	LastName   string
	Role       string
	Companies  []models.Business
	Businesses []models.Business
	jwt.RegisteredClaims

	// expUnreadable marks an exp claim that is present but not a number.
	expUnreadable bool
}

// Parse reads the claims out of the middle segment of a three-segment token.
// Only an unreadable segment or a payload that is not a JSON object fails.
func Parse(raw string) (*Claims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrDecode, len(parts))
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrDecode)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	c := &Claims{
		ID:         stringField(fields, "id"),
		Email:      stringField(fields, "email"),
		FirstName:  stringField(fields, "firstName"),
		LastName:   stringField(fields, "lastName"),
		Role:       stringField(fields, "role"),
		Companies:  businessesField(fields, "companies"),
		Businesses: businessesField(fields, "businesses"),
	}

	if rawExp, ok := fields["exp"]; ok && !isNull(rawExp) {
		var exp jwt.NumericDate
		if err := json.Unmarshal(rawExp, &exp); err != nil {
			c.expUnreadable = true
		} else {
			c.ExpiresAt = &exp
		}
	}

	return c, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := fields[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// businessesField accepts business documents and bare business IDs. Other
// entries, or a value that is not an array, are dropped.
func businessesField(fields map[string]json.RawMessage, key string) []models.Business {
	raw, ok := fields[key]
	if !ok {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	var out []models.Business
	for _, e := range entries {
		var id string
		if err := json.Unmarshal(e, &id); err == nil {
			if id != "" {
				out = append(out, models.Business{ID: id})
			}
			continue
		}

		var b models.Business
		if err := json.Unmarshal(e, &b); err == nil && b.ID != "" {
			out = append(out, b)
		}
	}
	return out
}

// Decode parses a token into the user it describes.
func Decode(raw string) (*models.User, error) {
	claims, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return claims.User(), nil
}

// DecodeOrNil is Decode with failures mapped to a nil user.
func DecodeOrNil(raw string) *models.User {
	user, err := Decode(raw)
	if err != nil {
		return nil
	}
	return user
}

// User builds the user record carried by the claims.
func (c *Claims) User() *models.User {
	businesses := c.Businesses
	if len(businesses) == 0 {
		businesses = c.Companies
	}

	return &models.User{
		ID:         c.ID,
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Role:       c.Role,
		Businesses: append([]models.Business(nil), businesses...),
	}
}

// Expired reports whether the exp claim lies at or before now.
// Claims without exp never expire; an unreadable exp counts as expired.
func (c *Claims) Expired(now time.Time) bool {
	if c.expUnreadable {
		return true
	}
	validator := jwt.NewValidator(jwt.WithTimeFunc(func() time.Time { return now }))
	return errors.Is(validator.Validate(c), jwt.ErrTokenExpired)
}

// Expired parses raw and checks its exp claim against now.
func Expired(raw string, now time.Time) (bool, error) {
	claims, err := Parse(raw)
	if err != nil {
		return false, err
	}
	return claims.Expired(now), nil
}
