package httpapi

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errTokenInvalid = errors.New("invalid flow token")

// flowClaims binds the affinity cookie to one flow instance.
type flowClaims struct {
	FlowID string `json:"fid"`
	jwt.RegisteredClaims
}

// tokenCodec signs and verifies the flow affinity cookie. HS256 with a
// deployment-provided secret; the token carries nothing but the flow ID and
// its expiry.
type tokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func newTokenCodec(secret []byte, ttl time.Duration) *tokenCodec {
	return &tokenCodec{secret: secret, ttl: ttl}
}

func (c *tokenCodec) issue(flowID string) (string, error) {
	claims := flowClaims{
		FlowID: flowID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

func (c *tokenCodec) parse(raw string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(raw, &flowClaims{}, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return "", errTokenInvalid
	}

	claims, ok := token.Claims.(*flowClaims)
	if !ok || !token.Valid || claims.FlowID == "" {
		return "", errTokenInvalid
	}
	return claims.FlowID, nil
}
