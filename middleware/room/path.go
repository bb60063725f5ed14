package room

import (
	"regexp"

	"room-gateway/middleware/room/domain"
)

var roomPathRE = regexp.MustCompile(`^/room/([^/]+)$`)

// ParseRoomPath extrai o id de caminhos no formato /room/{roomId}.
func ParseRoomPath(path string) (domain.RoomID, bool) {
	m := roomPathRE.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return domain.RoomID(m[1]), true
}
