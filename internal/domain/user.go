package domain

import (
	"errors"
	"time"
)

type User struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	ProfilePictureURL string `json:"profilePictureUrl"`
	PhoneNumber       string `json:"phoneNumber"`
}

// Session is the visitor's auth state: whether they are logged in, the bearer
// token handed out by the remote API and the user it belongs to.
type Session struct {
	ID         string    `json:"id"`
	IsLoggedIn bool      `json:"isLoggedIn"`
	Token      string    `json:"token"`
	User       User      `json:"user"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Image is a proof-of-payment file selected by the user.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

var ErrEmptyImage = errors.New("image is empty")

func (i *Image) Validate() error {
	if i == nil || len(i.Data) == 0 {
		return ErrEmptyImage
	}
	return nil
}
