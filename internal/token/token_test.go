package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealbook-dev/dealbook/internal/models"
)

func encodeSegment(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(data)
}

func unsignedToken(t *testing.T, payload any) string {
	t.Helper()
	return encodeSegment(t, map[string]string{"alg": "HS256", "typ": "JWT"}) + "." + encodeSegment(t, payload) + ".signature"
}

func TestDecode_RecoversPayloadFields(t *testing.T) {
	raw := unsignedToken(t, map[string]any{
		"id":        "u-1",
		"email":     "ana@example.com",
		"firstName": "Ana",
		"lastName":  "Silva",
		"businesses": []map[string]string{
			{"_id": "b-1", "name": "Ana's Salon"},
			{"id": "b-2", "name": "Ana's Spa"},
		},
	})

	user, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, &models.User{
		ID:        "u-1",
		Email:     "ana@example.com",
		FirstName: "Ana",
		LastName:  "Silva",
		Businesses: []models.Business{
			{ID: "b-1", Name: "Ana's Salon"},
			{ID: "b-2", Name: "Ana's Spa"},
		},
	}, user)
}

func TestDecode_CompaniesFallback(t *testing.T) {
	raw := unsignedToken(t, map[string]any{
		"id":        "u-1",
		"companies": []map[string]string{{"id": "c-1", "name": "Barbers"}},
	})

	user, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, []models.Business{{ID: "c-1", Name: "Barbers"}}, user.Businesses)
}

func TestDecode_MissingFieldsAreZero(t *testing.T) {
	user, err := Decode(unsignedToken(t, map[string]any{"email": "only@example.com"}))
	require.NoError(t, err)
	assert.Empty(t, user.ID)
	assert.Equal(t, "only@example.com", user.Email)
	assert.Empty(t, user.Businesses)
}

func TestDecode_SignedToken(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    "u-9",
		"email": "signed@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	user, err := Decode(signed)
	require.NoError(t, err)
	assert.Equal(t, "u-9", user.ID)
	assert.Equal(t, "signed@example.com", user.Email)
}

func TestDecode_PaddedSegment(t *testing.T) {
	data, err := json.Marshal(map[string]string{"id": "u-2"})
	require.NoError(t, err)
	raw := "h." + base64.URLEncoding.EncodeToString(data) + ".s"

	user, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-2", user.ID)
}

func TestDecode_Malformed(t *testing.T) {
	validPayload := base64.RawURLEncoding.EncodeToString([]byte(`{"id":"u-1"}`))

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"two segments", "abc." + validPayload},
		{"four segments", "a." + validPayload + ".c.d"},
		{"invalid base64", "a.!!!not-base64!!!.c"},
		{"invalid json", "a." + base64.RawURLEncoding.EncodeToString([]byte(`{"id":`)) + ".c"},
		{"json array", "a." + base64.RawURLEncoding.EncodeToString([]byte(`["x"]`)) + ".c"},
		{"json null", "a." + base64.RawURLEncoding.EncodeToString([]byte(`null`)) + ".c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := Decode(tt.raw)
			assert.Nil(t, user)
			assert.True(t, errors.Is(err, ErrDecode), "expected ErrDecode, got %v", err)
			assert.Nil(t, DecodeOrNil(tt.raw))
		})
	}
}

func TestDecode_ToleratesMismatchedFieldTypes(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		payload map[string]any
		want    models.User
	}{
		{
			name:    "numeric id",
			payload: map[string]any{"id": 42, "email": "a@b.c", "exp": future},
			want:    models.User{Email: "a@b.c"},
		},
		{
			name:    "numeric subject",
			payload: map[string]any{"id": "u-1", "sub": 7, "exp": future},
			want:    models.User{ID: "u-1"},
		},
		{
			name:    "companies as ids",
			payload: map[string]any{"id": "u-1", "companies": []any{"c1", 3, nil, map[string]string{"_id": "c2", "name": "Spa"}}},
			want:    models.User{ID: "u-1", Businesses: []models.Business{{ID: "c1"}, {ID: "c2", Name: "Spa"}}},
		},
		{
			name:    "businesses not an array",
			payload: map[string]any{"id": "u-1", "businesses": "b-1", "firstName": []string{"Ana"}},
			want:    models.User{ID: "u-1"},
		},
		{
			name:    "role object",
			payload: map[string]any{"email": "a@b.c", "role": map[string]string{"name": "owner"}, "aud": 12},
			want:    models.User{Email: "a@b.c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := Decode(unsignedToken(t, tt.payload))
			require.NoError(t, err)
			require.NotNil(t, user)
			assert.Equal(t, tt.want, *user)
		})
	}
}

func TestExpired_UnreadableExp(t *testing.T) {
	raw := unsignedToken(t, map[string]any{"id": "u-1", "exp": "soon"})

	user, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)

	expired, err := Expired(raw, time.Now())
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	past := unsignedToken(t, map[string]any{"id": "u", "exp": now.Add(-time.Minute).Unix()})
	future := unsignedToken(t, map[string]any{"id": "u", "exp": now.Add(time.Minute).Unix()})
	noExp := unsignedToken(t, map[string]any{"id": "u"})

	expired, err := Expired(past, now)
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = Expired(future, now)
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = Expired(noExp, now)
	require.NoError(t, err)
	assert.False(t, expired)

	_, err = Expired("garbage", now)
	assert.ErrorIs(t, err, ErrDecode)
}
