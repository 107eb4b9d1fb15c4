package domain

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)
