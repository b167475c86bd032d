package main

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// reportClaims carries a finished diagnosis so the PDF can be rendered on a
// later request without storing anything server-side.
type reportClaims struct {
	Plant      string  `json:"plant"`
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
	jwt.RegisteredClaims
}

var errBadReportToken = errors.New("invalid or expired report token")

func signReportToken(secret []byte, ttl time.Duration, plant, disease string, confidence float64) (string, error) {
	now := time.Now()
	claims := reportClaims{
		Plant:      plant,
		Disease:    disease,
		Confidence: confidence,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "report",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseReportToken(secret []byte, tokenString string) (*reportClaims, error) {
	var claims reportClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return secret, nil
	}, jwt.WithSubject("report"), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, errBadReportToken
	}
	return &claims, nil
}
