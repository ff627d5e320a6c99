package jwtutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"huddle-api/pkg/xerrors"
)

type Claims struct {
	UserID   int64  `json:"uid,string"`
	Username string `json:"username,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

func NewManager(secret, issuer string, tokenTTL time.Duration) *Manager {
	return &Manager{secret: []byte(secret), issuer: issuer, tokenTTL: tokenTTL}
}

func (m *Manager) Issue(userID int64, username, purpose string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Purpose:  purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.secret)
}

func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, xerrors.ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil || !tok.Valid {
		return nil, xerrors.ErrInvalidToken
	}
	return claims, nil
}
