package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"party_server/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// IdentityResolver turns bearer tokens into identities. With no secret every
// caller is anonymous.
type IdentityResolver struct {
	secret []byte
	now    func() time.Time
}

func NewIdentityResolver(secret string) *IdentityResolver {
	return &IdentityResolver{secret: []byte(secret), now: time.Now}
}

func (r *IdentityResolver) Enabled() bool { return len(r.secret) > 0 }

// Issue signs an HS256 token for id.
func (r *IdentityResolver) Issue(id domain.Identity, ttl time.Duration) (string, error) {
	if !r.Enabled() {
		return "", errors.New("JWT_SECRET is not set")
	}
	now := r.now()
	claims := jwt.MapClaims{
		"user_id": id.UserID,
		"name":    id.DisplayName,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
	}
	if id.AvatarRef != "" {
		claims["avatar"] = id.AvatarRef
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}

// Parse validates token and returns its identity.
func (r *IdentityResolver) Parse(tokenString string) (*domain.Identity, error) {
	if !r.Enabled() {
		return nil, ErrInvalidToken
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return r.secret, nil
	}, jwt.WithTimeFunc(r.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return nil, errors.New("user_id not found")
	}
	id := &domain.Identity{UserID: int64(userID)}
	id.DisplayName, _ = claims["name"].(string)
	id.AvatarRef, _ = claims["avatar"].(string)
	return id, nil
}

// Resolve is Parse that maps every failure to anonymous (nil).
func (r *IdentityResolver) Resolve(token string) *domain.Identity {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil
	}
	id, err := r.Parse(token)
	if err != nil {
		return nil
	}
	return id
}
