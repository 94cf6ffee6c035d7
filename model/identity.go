package model

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsStaff is true for every role allowed to run the circulation desk.
func (r Role) IsStaff() bool { return r == RoleStaff || r == RoleAdmin || r == RoleTeacher }

// Identity is the caller as asserted by the session token.
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
