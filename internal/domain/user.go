package domain

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// Operator is a console account. Credentials come from configuration, not the database.
type Operator struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // bcrypt
	Role         string `json:"role"`
}

type LoginUserDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}
