package model

import "time"

// AdminSubject is the JWT subject of the single administrator.
const AdminSubject = "admin"

// AdminLoginRequest is the payload for admin authentication.
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// AdminLoginResponse is returned after successful admin login.
type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
