package domain

import "errors"

var (
	// ErrRoomNotFound: não há registro de metadados (nunca criada ou expirada).
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull: a sala já está na capacidade para quem não é membro.
	ErrRoomFull = errors.New("room full")
	// ErrStoreUnavailable: falha de I/O ou timeout numa leitura/escrita crítica.
	// Quem chama deve falhar fechado (tratar como sala inexistente).
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrTTLRefreshFailed: renovação de TTL best-effort falhou. Nunca chega ao usuário.
	ErrTTLRefreshFailed = errors.New("ttl refresh failed")
	// ErrTokenCollision: o token recém-gerado já estava no conjunto.
	ErrTokenCollision = errors.New("token collision")
)
