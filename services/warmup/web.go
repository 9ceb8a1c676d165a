package warmup

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/storefront/lib/mycontext"
	"github.com/MarcGrol/storefront/lib/myhttp"
	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/services/catalog"
)

type CatalogLoader interface {
	Refresh(c context.Context) error
	Status() catalog.FetchStatus
}

type webService struct {
	logger  mylog.Logger
	catalog CatalogLoader
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(catalog CatalogLoader, logger mylog.Logger) *webService {
	return &webService{
		logger:  logger,
		catalog: catalog,
	}
}

func (s webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")
}

func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		if s.catalog.Status().Status != catalog.StatusSuccess {
			err := s.catalog.Refresh(c)
			if err != nil {
				errorWriter.WriteError(c, w, 1, err)
				return
			}
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed warmup request",
		})
	}
}
