package models

import (
	"strings"
	"time"
)

// Role is the closed set of user roles known to the directory.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleAgent    Role = "AGENT"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole maps a role string onto Role. Matching ignores case and
// surrounding whitespace; unknown values report false.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleEmployee, RoleAgent, RoleAdmin:
		return r, true
	}
	return "", false
}

// User is an identity known to the directory service.
type User struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"size:64;not null;uniqueIndex"`
	Email     string `gorm:"size:128"`
	Role      Role   `gorm:"size:16;not null;index"`
	CreatedAt time.Time
}

// Employee is the insured party that submits claims and books appointments.
type Employee struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	FullName    string `gorm:"size:128;not null"`
	Department  string `gorm:"size:64"`
	Designation string `gorm:"size:64"`
	UserID      *uint  `gorm:"uniqueIndex"`
	CreatedAt   time.Time

	User *User `gorm:"foreignKey:UserID"`
}

// Email returns the contact address of the employee's user, if linked.
func (e *Employee) Email() string {
	if e.User == nil {
		return ""
	}
	return e.User.Email
}
