package models

// User is the read model of an account. Registration, OTP and password
// flows live outside this core.
type User struct {
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Image     string `json:"image"`
	IsAdmin   bool   `json:"is_admin"`
	IsBlocked bool   `json:"is_blocked"`
	CreatedAt int64  `json:"created_at"`
}
