package users

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	formcodec "github.com/go-playground/form/v4"

	"github.com/MarcGrol/storefront/lib/myerrors"
)

type Registration struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Email    string `form:"email" json:"email,omitempty"`
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return myerrors.NewInvalidInputErrorf("username is required")
	}
	if r.Password == "" {
		return myerrors.NewInvalidInputErrorf("password is required")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return myerrors.NewInvalidInputErrorf("email %q is not a valid address", r.Email)
	}
	return nil
}

// User is what the remote api returns for a created user. The password never comes back.
type User struct {
	ID       any    `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func NewRegistrationFromRequest(r *http.Request) (Registration, error) {
	err := r.ParseForm()
	if err != nil {
		return Registration{}, myerrors.NewInvalidInputError(err)
	}
	return NewRegistrationFromValues(r.Form)
}

func NewRegistrationFromValues(values url.Values) (Registration, error) {
	registration := Registration{}
	err := formcodec.NewDecoder().Decode(&registration, values)
	if err != nil {
		return registration, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %w", err))
	}

	return registration, nil
}

type ProfilePageInfo struct {
	Username     string
	Email        string
	Registered   string
	ErrorMessage string
}
