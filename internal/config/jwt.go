package config

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"service-queue/internal/models"
)

type OperatorClaims struct {
	OperatorID  int64  `json:"operator_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Permissions string `json:"permissions"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, clock: time.Now}
}

func (t *TokenIssuer) GenerateToken(operator models.Operator) (string, error) {
	now := t.clock()
	claims := OperatorClaims{
		OperatorID:  operator.ID,
		Name:        operator.Name,
		Email:       operator.Email,
		Permissions: operator.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenIssuer) ValidateToken(tokenString string) (*OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.clock))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*OperatorClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
