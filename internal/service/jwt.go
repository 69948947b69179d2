package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

var jwtSecret []byte

const tokenTTL = 24 * time.Hour

func InitJWT(secret string) {
	if secret == "" {
		panic("jwt secret is empty")
	}
	jwtSecret = []byte(secret)
}

// GeneratePlayerToken mints the per-session token a player gets when
// creating or joining a session. It is the only credential the API and
// the socket accept.
func GeneratePlayerToken(playerID, code string) (string, error) {
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"player_id": playerID,
		"code":      code,
		"exp":       time.Now().Add(tokenTTL).Unix(),
		"iat":       now,
		"nbf":       now,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParsePlayerToken validates the token and returns its player id and
// session code.
func ParsePlayerToken(tokenString string) (playerID, code string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}

	now := time.Now().Unix()
	if exp, ok := claims["exp"].(float64); ok {
		if int64(exp) < now {
			return "", "", ErrInvalidToken
		}
	}
	if nbf, ok := claims["nbf"].(float64); ok {
		if int64(nbf) > now {
			return "", "", ErrInvalidToken
		}
	}

	playerID, ok = claims["player_id"].(string)
	if !ok || playerID == "" {
		return "", "", ErrInvalidToken
	}
	code, ok = claims["code"].(string)
	if !ok || code == "" {
		return "", "", ErrInvalidToken
	}
	return playerID, code, nil
}
