package room

import (
	"net/http"

	"room-gateway/middleware/room/domain"
)

// DefaultCookieName é distinto de qualquer cookie de sessão geral.
const DefaultCookieName = "x-auth-token"

// ReadCredential devolve "" quando o cliente não apresentou credencial.
func ReadCredential(r *http.Request, name string) domain.Token {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return domain.Token(c.Value)
}

// BindCredential entrega o token ao cliente: vale para todo o site, não é
// legível por script, só vai em requests same-site e, com secure=true, só em HTTPS.
func BindCredential(w http.ResponseWriter, name string, token domain.Token, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    string(token),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
