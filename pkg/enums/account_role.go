package enums

import "fmt"

// AccountRole maps to the account_role enum in Postgres.
type AccountRole string

const (
	AccountRoleAdmin   AccountRole = "admin"
	AccountRoleStudent AccountRole = "student"
)

var validAccountRoles = []AccountRole{
	AccountRoleAdmin,
	AccountRoleStudent,
}

// IsValid reports whether the value matches the canonical role enum.
func (r AccountRole) IsValid() bool {
	for _, candidate := range validAccountRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseAccountRole converts raw input into AccountRole.
func ParseAccountRole(value string) (AccountRole, error) {
	for _, candidate := range validAccountRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account role %q", value)
}
