package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleGuard Role = "guard"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleGuard
}

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	IsStaff      bool       `json:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser"`
	DateJoined   time.Time  `json:"date_joined"`
	LastLogin    *time.Time `json:"last_login"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Version      int32      `json:"-"`
}

// EnforceRole keeps role, is_staff and is_superuser consistent. It runs before every write.
func (u *User) EnforceRole() {
	if u.IsSuperuser {
		u.Role = RoleAdmin
	}
	if u.Role == "" {
		u.Role = RoleGuard
	}
	u.IsStaff = u.Role == RoleAdmin
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
