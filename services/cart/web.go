package cart

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/storefront/lib/mycontext"
	"github.com/MarcGrol/storefront/lib/myerrors"
	"github.com/MarcGrol/storefront/lib/myhttp"
	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/lib/mywebsocket"
)

type webService struct {
	store  *Store
	hub    *mywebsocket.Hub
	logger mylog.Logger
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(c context.Context, store *Store, logger mylog.Logger) *webService {
	s := &webService{
		store:  store,
		logger: logger,
	}
	s.hub = mywebsocket.NewHub(logger, s.onClientMessage)
	go s.hub.Run(c)

	// every notification change is pushed to connected browsers
	store.Notifications().Subscribe(func(n *Notification) {
		err := s.hub.Broadcast(c, n)
		if err != nil {
			logger.Log(c, "", mylog.SeverityWarn, "Error broadcasting notification: %s", err)
		}
	})

	return s
}

func (s webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	// Endpoints that compose the userinterface
	router.HandleFunc("/", s.cartPage()).Methods("GET")
	router.HandleFunc("/cart", s.cartPage()).Methods("GET")
	router.HandleFunc("/cart/clear", s.clearForm()).Methods("POST")
	router.HandleFunc("/cart/{productID}", s.addForm()).Methods("POST")
	router.HandleFunc("/cart/{productID}/update", s.updateForm()).Methods("POST")
	router.HandleFunc("/cart/{productID}/remove", s.removeForm()).Methods("POST")

	router.HandleFunc("/api/cart", s.getCart()).Methods("GET")
	router.HandleFunc("/api/cart", s.clearCart()).Methods("DELETE")
	router.HandleFunc("/api/cart/{productID}", s.addToCart()).Methods("POST")
	router.HandleFunc("/api/cart/{productID}", s.updateCartItem()).Methods("PUT")
	router.HandleFunc("/api/cart/{productID}", s.removeFromCart()).Methods("DELETE")

	router.HandleFunc("/api/notification", s.getNotification()).Methods("GET")
	router.HandleFunc("/api/notification", s.dismissNotification()).Methods("DELETE")
	router.HandleFunc("/ws/notifications", s.notificationFeed()).Methods("GET")
}

//go:embed templates
var templateFolder embed.FS
var (
	cartPageTemplate *template.Template
)

func init() {
	cartPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/cart.html"))
}

type CartPageInfo struct {
	Summary      Summary
	Notification *Notification
}

type quantityForm struct {
	Qty int `form:"qty"`
}

func (s webService) cartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := cartPageTemplate.Execute(w, CartPageInfo{
			Summary:      s.store.Summary(),
			Notification: s.store.Notifications().Current(),
		})
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInternalError(err))
			return
		}
	}
}

func (s webService) addForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		productID, qty, err := productAndQuantityFromForm(r, 1)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}
		if qty < 1 {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputErrorf("quantity must be at least 1, got %d", qty))
			return
		}

		s.store.AddToCart(c, productID, qty)

		// Outcome is visible as notification on the cart page
		http.Redirect(w, r, fmt.Sprintf("%s/cart", myhttp.HostnameWithScheme(r)), http.StatusSeeOther)
	}
}

func (s webService) updateForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		productID, qty, err := productAndQuantityFromForm(r, 0)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		s.store.UpdateCartItem(c, productID, qty)

		http.Redirect(w, r, fmt.Sprintf("%s/cart", myhttp.HostnameWithScheme(r)), http.StatusSeeOther)
	}
}

func (s webService) removeForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		productID, err := myhttp.IntPathParam(r, "productID")
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		s.store.RemoveFromCart(c, productID)

		http.Redirect(w, r, fmt.Sprintf("%s/cart", myhttp.HostnameWithScheme(r)), http.StatusSeeOther)
	}
}

func (s webService) clearForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		s.store.Clear(c)

		http.Redirect(w, r, fmt.Sprintf("%s/cart", myhttp.HostnameWithScheme(r)), http.StatusSeeOther)
	}
}

func (s webService) getCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		myhttp.NewWriter(s.logger).Write(c, w, http.StatusOK, s.store.Summary())
	}
}

func (s webService) clearCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		s.store.Clear(c)

		myhttp.NewWriter(s.logger).Write(c, w, http.StatusOK, s.store.Summary())
	}
}

func (s webService) addToCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		productID, qty, err := productAndQuantityFromQuery(r, 1)
		if err != nil {
			errorWriter.WriteError(c, w, 5, err)
			return
		}
		if qty < 1 {
			errorWriter.WriteError(c, w, 5, myerrors.NewInvalidInputErrorf("query parameter qty must be at least 1, got %d", qty))
			return
		}

		accepted := s.store.AddToCart(c, productID, qty)

		s.writeResult(c, w, accepted)
	}
}

func (s webService) updateCartItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		if r.URL.Query().Get("qty") == "" {
			errorWriter.WriteError(c, w, 6, myerrors.NewInvalidInputErrorf("query parameter qty is required"))
			return
		}
		productID, qty, err := productAndQuantityFromQuery(r, 0)
		if err != nil {
			errorWriter.WriteError(c, w, 6, err)
			return
		}

		accepted := s.store.UpdateCartItem(c, productID, qty)

		s.writeResult(c, w, accepted)
	}
}

func (s webService) removeFromCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		productID, err := myhttp.IntPathParam(r, "productID")
		if err != nil {
			errorWriter.WriteError(c, w, 7, err)
			return
		}

		s.store.RemoveFromCart(c, productID)

		errorWriter.Write(c, w, http.StatusOK, s.store.Summary())
	}
}

func (s webService) getNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		myhttp.NewWriter(s.logger).Write(c, w, http.StatusOK, s.store.Notifications().Current())
	}
}

func (s webService) dismissNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		s.store.Notifications().Dismiss()

		myhttp.NewWriter(s.logger).Write(c, w, http.StatusOK, myhttp.EmptyResponse{})
	}
}

func (s webService) notificationFeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		err := s.hub.ServeWS(w, r, func() any {
			return s.store.Notifications().Current()
		})
		if err != nil {
			s.logger.Log(c, "", mylog.SeverityWarn, "Error serving notification feed: %s", err)
		}
	}
}

type clientMessage struct {
	Type string `json:"type"`
}

func (s webService) onClientMessage(c context.Context, message []byte) {
	msg := clientMessage{}
	err := json.Unmarshal(message, &msg)
	if err != nil {
		s.logger.Log(c, "", mylog.SeverityDebug, "Ignoring unparseable websocket message: %s", err)
		return
	}
	if msg.Type == "dismiss" {
		s.store.Notifications().Dismiss()
	}
}

func (s webService) writeResult(c context.Context, w http.ResponseWriter, accepted bool) {
	httpStatus := http.StatusOK
	if !accepted {
		httpStatus = http.StatusConflict
	}
	myhttp.NewWriter(s.logger).Write(c, w, httpStatus, ActionResult{
		Accepted:     accepted,
		Notification: s.store.Notifications().Current(),
		Count:        s.store.Count(),
	})
}

func productAndQuantityFromQuery(r *http.Request, defaultQty int) (int, int, error) {
	productID, err := myhttp.IntPathParam(r, "productID")
	if err != nil {
		return 0, 0, err
	}
	qty, err := myhttp.IntQueryParam(r, "qty", defaultQty)
	if err != nil {
		return 0, 0, err
	}
	return productID, qty, nil
}

func productAndQuantityFromForm(r *http.Request, defaultQty int) (int, int, error) {
	productID, err := myhttp.IntPathParam(r, "productID")
	if err != nil {
		return 0, 0, err
	}

	err = r.ParseForm()
	if err != nil {
		return 0, 0, myerrors.NewInvalidInputError(err)
	}
	if r.Form.Get("qty") == "" {
		return productID, defaultQty, nil
	}

	form := quantityForm{}
	err = formcodec.NewDecoder().Decode(&form, r.Form)
	if err != nil {
		return 0, 0, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %w", err))
	}
	return productID, form.Qty, nil
}
