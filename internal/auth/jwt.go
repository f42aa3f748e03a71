package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds join-token claims binding a user to one meeting.
type Claims struct {
	MeetingID string `json:"meeting_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService generates and validates meeting join tokens.
type TokenService struct {
	secret      []byte
	expireHours int
}

// NewTokenService creates a join-token service.
func NewTokenService(secret string, expireHours int) *TokenService {
	return &TokenService{
		secret:      []byte(secret),
		expireHours: expireHours,
	}
}

// Generate creates a join token for a user in a meeting.
func (s *TokenService) Generate(meetingID, userID, role string) (string, error) {
	claims := Claims{
		MeetingID: meetingID,
		UserID:    userID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a join token, returning claims or error.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateJoinToken reports whether the token is valid and bound to the given
// meeting and user. Used by session actors to answer auth-validation requests.
func (s *TokenService) ValidateJoinToken(token, meetingID, userID string) bool {
	claims, err := s.Validate(token)
	if err != nil {
		return false
	}
	return claims.MeetingID == meetingID && claims.UserID == userID
}
