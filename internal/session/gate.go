package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Login failures surface to the user inline; everything else in the system
// degrades silently, but the gate is the one interactive form.
var (
	ErrWrongRoomCode   = errors.New("wrong room code")
	ErrInvalidUsername = errors.New("username must be 1-15 characters")
)

// Session is a tab's identity. It lives with the tab, never in the shared
// store: every tab (even on the same device) gets its own user.
type Session struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

type joinForm struct {
	Username string `validate:"required,max=15"`
}

// Gate is the room's client-side join check: a static shared code plus a
// username constraint. It mints the session tokens the gateway later uses to
// re-identify a tab on upgrade.
type Gate struct {
	roomCode string
	secret   []byte
	tokenTTL time.Duration
	validate *validator.Validate
}

func NewGate(roomCode, secret string) *Gate {
	return &Gate{
		roomCode: roomCode,
		secret:   []byte(secret),
		tokenTTL: 24 * time.Hour,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Join checks the room code and username, then mints a fresh session with a
// new user ID. The ID is stable for the session's lifetime and nothing else.
func (g *Gate) Join(roomCode, username string) (Session, error) {
	if roomCode != g.roomCode {
		return Session{}, ErrWrongRoomCode
	}

	username = strings.TrimSpace(username)
	if err := g.validate.Struct(joinForm{Username: username}); err != nil {
		return Session{}, ErrInvalidUsername
	}

	userID := uuid.NewString()
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.tokenTTL)),
		},
		Username: username,
	})

	signed, err := token.SignedString(g.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session token: %w", err)
	}

	return Session{
		UserID:   userID,
		Username: username,
		Token:    signed,
	}, nil
}

// Parse validates a session token and recovers the identity it carries.
func (g *Gate) Parse(tokenString string) (Session, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	if tokenString == "" {
		return Session{}, errors.New("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("failed to parse token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Session{}, errors.New("invalid token claims")
	}

	return Session{
		UserID:   c.Subject,
		Username: c.Username,
		Token:    tokenString,
	}, nil
}
