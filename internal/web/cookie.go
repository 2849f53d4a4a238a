package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

const sessionCookie = "meetme_session"

// cookieSigner binds session ids to the server secret so a client cannot
// pick another browser's id.
type cookieSigner struct {
	secret []byte
	secure bool
	ttl    time.Duration
}

func (c cookieSigner) sign(id string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

// verify returns the session id carried by value, or "" when the signature
// does not match.
func (c cookieSigner) verify(value string) string {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return ""
	}
	if !hmac.Equal([]byte(c.sign(id)), []byte(id+"."+sig)) {
		return ""
	}
	return id
}

func (c cookieSigner) read(r *http.Request) string {
	ck, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.verify(ck.Value)
}

func (c cookieSigner) write(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    c.sign(id),
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookieSigner) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
