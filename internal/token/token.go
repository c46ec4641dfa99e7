package token

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

// Issuer is the iss claim on tokens signed by this service.
const Issuer = "poro"

// ErrInvalid is returned for any token that fails verification.
var ErrInvalid = errors.New("invalid token")

// Issue signs an HS256 bearer token whose subject is userID.
func Issue(secret string, userID int64, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret is empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns the user id in
// its subject.
func Verify(secret, raw string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return 0, errors.Wrap(ErrInvalid, errString(err))
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, errors.Wrap(ErrInvalid, "subject is not a user id")
	}
	return userID, nil
}

func errString(err error) string {
	if err == nil {
		return "token not valid"
	}
	return err.Error()
}
