package entity

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("not authorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("account is deactivated")
	ErrUserExists         = errors.New("user already exists")
)
