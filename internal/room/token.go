package room

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of an access token when none is given.
const DefaultTokenTTL = time.Hour

// Grant describes what a token holder may do in a room.
type Grant struct {
	Room         string
	Identity     string
	Name         string
	CanPublish   bool
	CanSubscribe bool
}

// AccessToken mints an HS256 room access token signed with apiSecret and
// issued by apiKey.
func AccessToken(apiKey, apiSecret string, g Grant, ttl time.Duration) (string, error) {
	if apiKey == "" || apiSecret == "" {
		return "", fmt.Errorf("room api key/secret required")
	}
	if g.Room == "" || g.Identity == "" {
		return "", fmt.Errorf("room and identity required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	name := g.Name
	if name == "" {
		name = g.Identity
	}
	claims := jwt.MapClaims{
		"jti":  uuid.NewString(),
		"iss":  apiKey,
		"sub":  g.Identity,
		"name": name,
		"nbf":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"video": map[string]any{
			"room":         g.Room,
			"roomJoin":     true,
			"canPublish":   g.CanPublish,
			"canSubscribe": g.CanSubscribe,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(apiSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// TokenSource mints tokens with fixed credentials.
type TokenSource struct {
	APIKey    string
	APISecret string
	TTL       time.Duration
}

// Token mints a publish/subscribe token for identity in room.
func (s TokenSource) Token(room, identity, name string) (string, error) {
	return AccessToken(s.APIKey, s.APISecret, Grant{
		Room:         room,
		Identity:     identity,
		Name:         name,
		CanPublish:   true,
		CanSubscribe: true,
	}, s.TTL)
}
