package models

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User carries the identity and the aggregate statistics mutated by the
// statistics aggregator. Authentication flows live outside this service; the
// password hash column exists so externally issued credentials can be stored.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"size:255" json:"-"`
	Role           string    `gorm:"size:32;not null;default:user" json:"role"`
	ProblemsSolved int64     `gorm:"default:0" json:"problems_solved"`
	Points         int64     `gorm:"default:0" json:"points"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
