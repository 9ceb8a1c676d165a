package catalog

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/storefront/lib/mycontext"
	"github.com/MarcGrol/storefront/lib/myerrors"
	"github.com/MarcGrol/storefront/lib/myhttp"
	"github.com/MarcGrol/storefront/lib/mylog"
)

// QuantityLookup reports how many of a product are already in the cart.
type QuantityLookup interface {
	Quantity(productID int) int
}

type webService struct {
	catalog    *Catalog
	quantities QuantityLookup
	logger     mylog.Logger
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(catalog *Catalog, quantities QuantityLookup, logger mylog.Logger) *webService {
	return &webService{
		catalog:    catalog,
		quantities: quantities,
		logger:     logger,
	}
}

func (s webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	// Endpoints that compose the userinterface
	router.HandleFunc("/products", s.productListPage()).Methods("GET")
	router.HandleFunc("/products/{productID}", s.productDetailPage()).Methods("GET")

	router.HandleFunc("/api/products", s.listProducts()).Methods("GET")
	router.HandleFunc("/api/products/refresh", s.refreshProducts()).Methods("POST")
	router.HandleFunc("/api/products/{productID}", s.getProduct()).Methods("GET")
}

//go:embed templates
var templateFolder embed.FS
var (
	productListPageTemplate   *template.Template
	productDetailPageTemplate *template.Template
)

func init() {
	productListPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/product_list.html"))
	productDetailPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/product_detail.html"))
}

func (s webService) productListPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := productListPageTemplate.Execute(w, struct {
			Status   FetchStatus
			Products []Product
		}{
			Status:   s.catalog.Status(),
			Products: s.catalog.Products(),
		})
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInternalError(err))
			return
		}
	}
}

func (s webService) productDetailPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		product, err := s.lookup(r)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		// start from what is already in the cart
		quantity := 1
		if s.quantities != nil {
			if inCart := s.quantities.Quantity(product.ID); inCart > 0 {
				quantity = inCart
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = productDetailPageTemplate.Execute(w, ProductDetailPageInfo{
			Product:  product,
			Quantity: quantity,
		})
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInternalError(err))
			return
		}
	}
}

func (s webService) listProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)

		myhttp.NewWriter(s.logger).Write(c, w, http.StatusOK, s.catalog.Products())
	}
}

func (s webService) getProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		product, err := s.lookup(r)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, product)
	}
}

func (s webService) refreshProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := s.catalog.Refresh(c)
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, s.catalog.Status())
	}
}

func (s webService) lookup(r *http.Request) (Product, error) {
	productID, err := myhttp.IntPathParam(r, "productID")
	if err != nil {
		return Product{}, err
	}

	product, found := s.catalog.Lookup(productID)
	if !found {
		return Product{}, myerrors.NewNotFoundError(fmt.Errorf("product with id %d not found", productID))
	}
	return product, nil
}
