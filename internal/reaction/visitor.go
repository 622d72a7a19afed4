package reaction

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const visitorCookie = "visitor_id"

// Visitors issues and reads the signed cookie that identifies an anonymous
// visitor. The identifier is not tied to any account.
type Visitors struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewVisitors creates a visitor cookie codec signed with hashKey.
func NewVisitors(hashKey []byte, secure bool) *Visitors {
	return &Visitors{codec: securecookie.New(hashKey, nil), secure: secure}
}

// Peek returns the visitor id carried by r, if any.
func (v *Visitors) Peek(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(visitorCookie)
	if err != nil {
		return "", false
	}
	var id string
	if err := v.codec.Decode(visitorCookie, cookie.Value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

// ID returns the visitor id of r, minting one and setting the cookie on w
// when the request has none or carries a tampered one.
func (v *Visitors) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	if id, ok := v.Peek(r); ok {
		return id, nil
	}
	id := uuid.NewString()
	encoded, err := v.codec.Encode(visitorCookie, id)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    encoded,
		Path:     "/",
		Expires:  time.Now().AddDate(1, 0, 0),
		HttpOnly: true,
		Secure:   v.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}
