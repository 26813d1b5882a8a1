package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user: not found")
	ErrUsernameTaken      = errors.New("user: username is already taken")
	ErrInvalidCredentials = errors.New("user: invalid credentials")
	ErrAlreadyExists      = errors.New("user: username or email already exists")
)

type User struct {
	Id       string    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Password []byte    `json:"-"`
	Bio      string    `json:"bio"`
	Avatar   string    `json:"avatar"`
	IsAdmin  bool      `json:"isAdmin"`
	Created  time.Time `json:"createdAt"`
}

// Public is the part of a user embedded into posts and comments.
type Public struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio,omitempty"`
}

type UserFromToken struct {
	Username string `json:"username"`
	Id       string `json:"id"`
}

func (u *User) Public() *Public {
	return &Public{
		Id:       u.Id,
		Username: u.Username,
		Avatar:   u.Avatar,
	}
}
