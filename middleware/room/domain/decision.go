package domain

// State é o resultado da decisão de admissão para um par (sala, credencial).
type State int

const (
	StateUnknownRoom State = iota
	StateAlreadyMember
	StateAdmitted
	StateRejectedFull
)

func (s State) String() string {
	switch s {
	case StateUnknownRoom:
		return "unknown_room"
	case StateAlreadyMember:
		return "already_member"
	case StateAdmitted:
		return "admitted"
	case StateRejectedFull:
		return "rejected_full"
	}
	return "invalid"
}

// Allowed indica se a requisição pode seguir para o próximo handler.
func (s State) Allowed() bool {
	return s == StateAlreadyMember || s == StateAdmitted
}

type Decision struct {
	State State
	// Token só é preenchido quando State == StateAdmitted: é a credencial nova
	// que o adapter HTTP deve entregar ao cliente.
	Token Token
}
