package model

import "time"

// User is one row of the users table.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Email     *string   `json:"email" gorm:"size:255;uniqueIndex"` // NULL when not given
	Phone     string    `json:"phone" gorm:"size:50"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmailValue returns the email or an empty string.
func (u *User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// UserInput is the payload accepted when creating a user.
type UserInput struct {
	Name  string `json:"name" form:"name" validate:"required,max=255"`
	Email string `json:"email" form:"email" validate:"omitempty,email,max=255"`
	Phone string `json:"phone" form:"phone" validate:"omitempty,max=50"`
}

// UserUpdate carries the fields to overwrite; nil fields are left untouched.
type UserUpdate struct {
	Name  *string `json:"name"`
	Email *string `json:"email"` // empty string clears the column
	Phone *string `json:"phone"`
}

// Empty reports whether the update carries no fields.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil
}
