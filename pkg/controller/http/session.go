package http

import (
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

const sessionCookieName = "pdfdesk_session"

const sessionIssuer = "pdfdesk"

// sessionCodec signs and verifies the session cookie
type sessionCodec struct {
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func newSessionCodec(key []byte, ttl time.Duration, secure bool) *sessionCodec {
	return &sessionCodec{
		key:    key,
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

// Cookie builds a signed cookie for sid
func (c *sessionCodec) Cookie(sid types.SessionID) (*http.Cookie, error) {
	now := c.now()
	tok, err := jwt.NewBuilder().
		Issuer(sessionIssuer).
		Subject(sid.String()).
		IssuedAt(now).
		Expiration(now.Add(c.ttl)).
		Build()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build session token")
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, c.key))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to sign session token")
	}

	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    string(signed),
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Read returns the session id carried by the request cookie
func (c *sessionCodec) Read(r *http.Request) (types.SessionID, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", err
	}

	tok, err := jwt.Parse([]byte(cookie.Value),
		jwt.WithKey(jwa.HS256, c.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithClock(jwt.ClockFunc(c.now)),
	)
	if err != nil {
		return "", goerr.Wrap(err, "invalid session token")
	}
	if tok.Subject() == "" {
		return "", goerr.New("session token has no subject")
	}

	return types.SessionID(tok.Subject()), nil
}
