package room

import (
	"net/url"
	"strconv"
)

// Indicadores de erro entregues para a UI na query string do redirect.
const (
	ErrorRoomNotFound = "room-notFound"
	ErrorRoomFull     = "room-full"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// redirectTarget acrescenta ?error=code ao destino, preservando query existente.
func redirectTarget(base, code string) string {
	if code == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("error", code)
	u.RawQuery = q.Encode()
	return u.String()
}
