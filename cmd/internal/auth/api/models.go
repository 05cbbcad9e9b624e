package authapi

import (
	"time"

	"authcore/cmd/identity"
)

type registerRequest struct {
	FirstName   string  `json:"firstName"`
	MiddleName  *string `json:"middleName"`
	LastName    string  `json:"lastName"`
	Age         *int    `json:"age"`
	State       *string `json:"state"`
	Country     *string `json:"country"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	PhoneNumber string  `json:"phoneNumber"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// userView is the public projection of a principal. It never carries the
// password hash.
type userView struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	MiddleName  *string   `json:"middleName,omitempty"`
	LastName    string    `json:"lastName"`
	Age         *int      `json:"age,omitempty"`
	State       *string   `json:"state,omitempty"`
	Country     *string   `json:"country,omitempty"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Role        string    `json:"role"`
	IsVerified  bool      `json:"isVerified"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// tokenBody holds the tokens a platform puts in the response body.
type tokenBody struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type loginData struct {
	userView
	tokenBody
}

func toUserView(u identity.User) userView {
	return userView{
		ID:          u.ID,
		FirstName:   u.FirstName,
		MiddleName:  u.MiddleName,
		LastName:    u.LastName,
		Age:         u.Age,
		State:       u.State,
		Country:     u.Country,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        string(u.Role),
		IsVerified:  u.IsVerified,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
