package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/MarcGrol/storefront/lib/myerrors"
	"github.com/MarcGrol/storefront/lib/myhttpclient"
	"github.com/MarcGrol/storefront/lib/mylog"
)

//go:generate mockgen -source=client.go -package users -destination registerer_mock.go Registerer
type Registerer interface {
	Register(c context.Context, registration Registration) (User, error)
}

type client struct {
	baseURL string
	sender  myhttpclient.HTTPSender
	logger  mylog.Logger
}

func NewClient(baseURL string, sender myhttpclient.HTTPSender, logger mylog.Logger) Registerer {
	return &client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		sender:  sender,
		logger:  logger,
	}
}

type remoteError struct {
	Error string `json:"error"`
}

func (cl *client) Register(c context.Context, registration Registration) (User, error) {
	err := registration.Validate()
	if err != nil {
		return User{}, err
	}

	cl.logger.Log(c, registration.Username, mylog.SeverityInfo, "Registering user %s", registration.Username)

	reqBody, err := json.Marshal(registration)
	if err != nil {
		return User{}, myerrors.NewInternalError(fmt.Errorf("error marshalling registration: %w", err))
	}

	httpStatus, respBody, err := cl.sender.Send(c, http.MethodPost, cl.baseURL+"/api/users", reqBody)
	if err != nil {
		return User{}, myerrors.NewBadGatewayError(fmt.Errorf("error registering user: %w", err))
	}
	if httpStatus < 200 || httpStatus >= 300 {
		return User{}, remoteFailure(httpStatus, respBody)
	}

	user := User{}
	err = json.Unmarshal(respBody, &user)
	if err != nil {
		return User{}, myerrors.NewBadGatewayError(fmt.Errorf("error parsing created user: %w", err))
	}
	if user.Username == "" {
		user.Username = registration.Username
	}

	cl.logger.Log(c, registration.Username, mylog.SeverityInfo, "User %s created", user.Username)

	return user, nil
}

func remoteFailure(httpStatus int, respBody []byte) error {
	remote := remoteError{}
	_ = json.Unmarshal(respBody, &remote)

	message := remote.Error
	if message == "" {
		message = fmt.Sprintf("request failed with status code %d", httpStatus)
	}
	err := fmt.Errorf("%s", message)

	switch {
	case httpStatus == http.StatusConflict:
		return myerrors.NewConflictError(err)
	case httpStatus >= 400 && httpStatus < 500:
		return myerrors.NewInvalidInputError(err)
	default:
		return myerrors.NewBadGatewayError(err)
	}
}
