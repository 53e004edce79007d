package entity

import (
	"time"
)

// Role values assignable to a user record. New accounts default to RoleUser.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Gender values accepted for a user record, stored lowercase.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// User is the aggregate root for the user domain.
// Password holds a bcrypt hash; plaintext never reaches the repository.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Dob       time.Time `json:"dob"`
	Gender    string    `json:"gender"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
