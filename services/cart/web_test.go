package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/storefront/lib/mylog"
)

func setupWeb(t *testing.T, stored string) (testContext, *Store, *mux.Router) {
	tc, store := setupStore(t, stored)
	tc.ignoreEvents()

	c, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := mux.NewRouter()
	NewService(c, store, mylog.New("cart")).RegisterEndpoints(c, router)

	return tc, store, router
}

func doRequest(router *mux.Router, method string, url string, body string) *httptest.ResponseRecorder {
	request, _ := http.NewRequest(method, url, strings.NewReader(body))
	if body != "" {
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	request.Host = "localhost:8080"
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func TestCartApi(t *testing.T) {
	t.Run("Get empty cart", func(t *testing.T) {
		// setup
		_, _, router := setupWeb(t, "")

		// when
		response := doRequest(router, http.MethodGet, "/api/cart", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `{"items":{},"count":0,"total":0,"lines":[]}`, response.Body.String())
	})

	t.Run("Get filled cart", func(t *testing.T) {
		// setup
		_, _, router := setupWeb(t, `{"7":2}`)

		// when
		response := doRequest(router, http.MethodGet, "/api/cart", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `{
			"items":{"7":2},
			"count":2,
			"total":25,
			"lines":[{"productId":7,"quantity":2,"known":true,"title":"Headphones","unitPrice":12.5,"lineTotal":25}]
		}`, response.Body.String())
	})

	t.Run("Add with default quantity", func(t *testing.T) {
		// setup
		_, store, router := setupWeb(t, "")

		// when
		response := doRequest(router, http.MethodPost, "/api/cart/7", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `{
			"accepted":true,
			"count":1,
			"notification":{"text":"Added 1 item(s) to cart.","type":"success","count":1,"product":{"id":7,"title":"Headphones","price":"$12.50"}}
		}`, response.Body.String())
		assert.Equal(t, 1, store.Quantity(7))
	})

	t.Run("Add rejected", func(t *testing.T) {
		// setup
		_, store, router := setupWeb(t, `{"7":2}`)

		// when
		response := doRequest(router, http.MethodPost, "/api/cart/7?qty=2", "")

		// then
		assert.Equal(t, http.StatusConflict, response.Code)
		assert.JSONEq(t, `{
			"accepted":false,
			"count":2,
			"notification":{"text":"Cannot add 2 item(s). Only 1 item(s) left in stock.","type":"error"}
		}`, response.Body.String())
		assert.Equal(t, 2, store.Quantity(7))
	})

	t.Run("Add invalid quantity", func(t *testing.T) {
		// setup
		_, _, router := setupWeb(t, "")

		// when
		response := doRequest(router, http.MethodPost, "/api/cart/7?qty=0", "")

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("Add invalid product id", func(t *testing.T) {
		// setup
		_, _, router := setupWeb(t, "")

		// when
		response := doRequest(router, http.MethodPost, "/api/cart/abc", "")

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
		assert.Contains(t, response.Body.String(), `path parameter productID must be an integer, got \"abc\"`)
	})

	t.Run("Update", func(t *testing.T) {
		// setup
		_, store, router := setupWeb(t, `{"9":1}`)

		// when
		response := doRequest(router, http.MethodPut, "/api/cart/9?qty=5", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, 5, store.Quantity(9))
	})

	t.Run("Update rejected", func(t *testing.T) {
		// setup
		_, store, router := setupWeb(t, `{"9":1}`)

		// when
		response := doRequest(router, http.MethodPut, "/api/cart/9?qty=11", "")

		// then
		assert.Equal(t, http.StatusConflict, response.Code)
		assert.Contains(t, response.Body.String(), "Cannot set quantity to 11. Only 10 item(s) in stock.")
		assert.Equal(t, 1, store.Quantity(9))
	})

	t.Run("Update without quantity", func(t *testing.T) {
		// setup
		_, _, router := setupWeb(t, `{"9":1}`)

		// when
		response := doRequest(router, http.MethodPut, "/api/cart/9", "")

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})

	t.Run("Remove", func(t *testing.T) {
		// setup
		_, store, router := setupWeb(t, `{"9":1,"7":1}`)

		// when
		response := doRequest(router, http.MethodDelete, "/api/cart/9", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, map[int]int{7: 1}, store.Items())
	})

	t.Run("Clear", func(t *testing.T) {
		// setup
		_, store, router := setupWeb(t, `{"9":1,"7":1}`)

		// when
		response := doRequest(router, http.MethodDelete, "/api/cart", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, 0, store.Count())
	})

	t.Run("Get and dismiss notification", func(t *testing.T) {
		// setup
		tc, store, router := setupWeb(t, "")
		store.AddToCart(tc.c, 9, 1)

		// when
		response := doRequest(router, http.MethodGet, "/api/notification", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, response.Body.String(), "Added 1 item(s) to cart.")

		// when
		response = doRequest(router, http.MethodDelete, "/api/notification", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Nil(t, store.Notifications().Current())
		response = doRequest(router, http.MethodGet, "/api/notification", "")
		assert.Equal(t, "null", strings.TrimSpace(response.Body.String()))
	})
}

func TestCartPages(t *testing.T) {
	t.Run("Empty cart page", func(t *testing.T) {
		// setup
		_, _, router := setupWeb(t, "")

		// when
		response := doRequest(router, http.MethodGet, "/", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, response.Body.String(), "<h1>Cart (0)</h1>")
		assert.Contains(t, response.Body.String(), "Your cart is empty")
	})

	t.Run("Cart page with lines", func(t *testing.T) {
		// setup
		_, _, router := setupWeb(t, `{"7":3,"42":1}`)

		// when
		response := doRequest(router, http.MethodGet, "/cart", "")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		got := response.Body.String()
		assert.Contains(t, got, "<h1>Cart (4)</h1>")
		assert.Contains(t, got, `<a href="/products/7">Headphones</a>`)
		assert.Contains(t, got, "Unknown product 42")
		assert.Contains(t, got, "<td>$37.50</td>")
		assert.Contains(t, got, "<p>Total: $37.50</p>")
	})

	t.Run("Add via form", func(t *testing.T) {
		// setup
		_, store, router := setupWeb(t, "")

		// when
		response := doRequest(router, http.MethodPost, "/cart/9", url.Values{"qty": {"3"}}.Encode())

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, "http://localhost:8080/cart", response.Header().Get("Location"))
		assert.Equal(t, 3, store.Quantity(9))
	})

	t.Run("Add via form with invalid quantity", func(t *testing.T) {
		// setup
		_, store, router := setupWeb(t, "")

		// when
		response := doRequest(router, http.MethodPost, "/cart/9", url.Values{"qty": {"many"}}.Encode())

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
		assert.Equal(t, 0, store.Count())
	})

	t.Run("Update, remove and clear via form", func(t *testing.T) {
		// setup
		_, store, router := setupWeb(t, `{"9":1,"7":1}`)

		// when
		response := doRequest(router, http.MethodPost, "/cart/9/update", url.Values{"qty": {"4"}}.Encode())

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, 4, store.Quantity(9))

		// when
		response = doRequest(router, http.MethodPost, "/cart/7/remove", "")

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, map[int]int{9: 4}, store.Items())

		// when
		response = doRequest(router, http.MethodPost, "/cart/clear", "")

		// then
		assert.Equal(t, http.StatusSeeOther, response.Code)
		assert.Equal(t, 0, store.Count())
	})
}

func TestNotificationFeed(t *testing.T) {
	t.Run("Feed pushes notification changes", func(t *testing.T) {
		// setup
		tc, store, router := setupWeb(t, "")
		server := httptest.NewServer(router)
		defer server.Close()

		// given
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/notifications", nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		var initial *Notification
		require.NoError(t, conn.ReadJSON(&initial))
		assert.Nil(t, initial)

		// when
		store.AddToCart(tc.c, 9, 2)

		// then
		got := Notification{}
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "Added 2 item(s) to cart.", got.Text)

		// when
		tc.clock.Advance(DefaultNotificationTTL)

		// then
		var cleared *Notification
		require.NoError(t, conn.ReadJSON(&cleared))
		assert.Nil(t, cleared)
	})

	t.Run("Client can dismiss", func(t *testing.T) {
		// setup
		tc, store, router := setupWeb(t, "")
		server := httptest.NewServer(router)
		defer server.Close()

		// given
		store.AddToCart(tc.c, 9, 1)
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/notifications", nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		initial := Notification{}
		require.NoError(t, conn.ReadJSON(&initial))
		assert.Equal(t, "Added 1 item(s) to cart.", initial.Text)

		// when
		require.NoError(t, conn.WriteJSON(map[string]string{"type": "dismiss"}))

		// then
		var cleared *Notification
		require.NoError(t, conn.ReadJSON(&cleared))
		assert.Nil(t, cleared)
		assert.Nil(t, store.Notifications().Current())
	})
}
