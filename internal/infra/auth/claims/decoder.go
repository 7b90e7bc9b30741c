package claims

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformedToken = errors.New("malformed bearer token")

// Decoder reads the claims of a bearer token. Signatures are checked upstream
// by the gateway, so the token is only parsed here.
type Decoder struct {
	parser *jwt.Parser
}

func NewDecoder() *Decoder {
	return &Decoder{parser: jwt.NewParser()}
}

func (d *Decoder) Decode(token string) (map[string]any, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMalformedToken
	}
	mapClaims := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(token, mapClaims); err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}
	return map[string]any(mapClaims), nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
