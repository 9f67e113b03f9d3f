package user

import (
	"time"

	"github.com/gofrs/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Role              Role       `json:"role"`
	Phone             string     `json:"phone,omitempty"`
	Address           string     `json:"address,omitempty"`
	City              string     `json:"city,omitempty"`
	State             string     `json:"state,omitempty"`
	ZipCode           string     `json:"zip_code,omitempty"`
	IsActive          bool       `json:"is_active"`
	ResetToken        string     `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	ProfileImage      []byte     `json:"-"`
	ProfileImageType  string     `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user may act on admin resources.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
