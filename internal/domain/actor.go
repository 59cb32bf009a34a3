package domain

type Role string

const (
	RoleRenter  Role = "RENTER"
	RoleOwner   Role = "OWNER"
	RoleShipper Role = "SHIPPER"
	RoleAdmin   Role = "ADMIN"
)

// Actor identifies the authenticated caller of a command operation.
// Role comes from the identity provider (JWT claims), never from the payload.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// User is the minimal party record the orchestration needs: credit score
// and blacklist status are mutated by dispute penalties.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	CreditScore int32  `json:"credit_score"`
	Blacklisted bool   `json:"blacklisted"`
}
