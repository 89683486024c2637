package engineclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// jwtRoundTripper attaches a freshly signed HS256 bearer token, per the
// Engine API authentication scheme, to every outgoing request.
type jwtRoundTripper struct {
	secret []byte
	base   http.RoundTripper
}

// newJWTRoundTripper wraps http.DefaultTransport with Engine-API JWT
// authentication using the given 32-byte shared secret.
func newJWTRoundTripper(secret []byte) *jwtRoundTripper {
	return &jwtRoundTripper{secret: secret, base: http.DefaultTransport}
}

func (rt *jwtRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := rt.sign()
	if err != nil {
		return nil, fmt.Errorf("sign engine api jwt: %w", err)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	return rt.base.RoundTrip(req)
}

func (rt *jwtRoundTripper) sign() (string, error) {
	claims := jwt.RegisteredClaims{
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(rt.secret)
}
