package users

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/storefront/lib/mycontext"
	"github.com/MarcGrol/storefront/lib/myerrors"
	"github.com/MarcGrol/storefront/lib/myhttp"
	"github.com/MarcGrol/storefront/lib/mylog"
)

type webService struct {
	registerer Registerer
	logger     mylog.Logger
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(registerer Registerer, logger mylog.Logger) *webService {
	return &webService{
		registerer: registerer,
		logger:     logger,
	}
}

func (s webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/profile", s.profilePage()).Methods("GET")
	router.HandleFunc("/profile", s.submitProfile()).Methods("POST")

	router.HandleFunc("/api/users", s.registerUser()).Methods("POST")
}

//go:embed templates
var templateFolder embed.FS
var (
	profilePageTemplate *template.Template
)

func init() {
	profilePageTemplate = template.Must(template.ParseFS(templateFolder, "templates/profile.html"))
}

func (s webService) profilePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderProfile(w, r, http.StatusOK, ProfilePageInfo{
			Registered: r.URL.Query().Get("registered"),
		})
	}
}

func (s webService) submitProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		registration, err := NewRegistrationFromRequest(r)
		if err == nil {
			_, err = s.registerer.Register(c, registration)
		}
		if err != nil {
			s.logger.Log(c, registration.Username, mylog.SeverityWarn, "Registration failed: %s", err)
			// re-render with what was typed, never the password
			s.renderProfile(w, r, myerrors.GetHTTPStatus(err), ProfilePageInfo{
				Username:     registration.Username,
				Email:        registration.Email,
				ErrorMessage: messageOf(err),
			})
			return
		}

		http.Redirect(w, r, myhttp.HostnameWithScheme(r)+"/profile?registered="+url.QueryEscape(registration.Username), http.StatusSeeOther)
	}
}

func (s webService) registerUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		registration := Registration{}
		err := json.NewDecoder(r.Body).Decode(&registration)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		user, err := s.registerer.Register(c, registration)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusCreated, user)
	}
}

func (s webService) renderProfile(w http.ResponseWriter, r *http.Request, httpStatus int, info ProfilePageInfo) {
	c := mycontext.ContextFromHTTPRequest(r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(httpStatus)
	err := profilePageTemplate.Execute(w, info)
	if err != nil {
		s.logger.Log(c, "", mylog.SeverityError, "Error rendering profile page: %s", err)
		return
	}
}

// messageOf drops the http status prefix for display.
func messageOf(err error) string {
	inner := errors.Unwrap(err)
	if inner == nil {
		return err.Error()
	}
	return inner.Error()
}
