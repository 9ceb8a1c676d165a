package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/MarcGrol/storefront/lib/myerrors"
	"github.com/MarcGrol/storefront/lib/myhttpclient"
	"github.com/MarcGrol/storefront/lib/mylog"
)

const defaultErrorMessage = "something went wrong"

// Catalog holds the most recently fetched product snapshot. It never fetches on its own.
type Catalog struct {
	sync.RWMutex
	baseURL      string
	sender       myhttpclient.HTTPSender
	logger       mylog.Logger
	products     []Product
	byID         map[int]Product
	status       Status
	errorMessage string
}

func New(baseURL string, sender myhttpclient.HTTPSender, logger mylog.Logger) *Catalog {
	return &Catalog{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		sender:  sender,
		logger:  logger,
		byID:    map[int]Product{},
		status:  StatusIdle,
	}
}

type remoteError struct {
	Error string `json:"error"`
}

// Refresh fetches the full product list and swaps it in. The previous snapshot stays in place on failure.
func (cat *Catalog) Refresh(c context.Context) error {
	cat.setStatus(StatusLoading, "")

	products, err := cat.fetch(c)
	if err != nil {
		cat.logger.Log(c, "", mylog.SeverityWarn, "Error refreshing products: %s", err)
		cat.setStatus(StatusFailed, err.Error())
		return myerrors.NewBadGatewayError(err)
	}

	byID := make(map[int]Product, len(products))
	for idx, p := range products {
		p.Image = fmt.Sprintf("%s/images/%s", cat.baseURL, p.Image)
		if p.Comments == nil {
			p.Comments = []Comment{}
		}
		products[idx] = p
		byID[p.ID] = p
	}

	cat.Lock()
	cat.products = products
	cat.byID = byID
	cat.status = StatusSuccess
	cat.errorMessage = ""
	cat.Unlock()

	cat.logger.Log(c, "", mylog.SeverityInfo, "Refreshed catalog with %d products", len(products))

	return nil
}

func (cat *Catalog) fetch(c context.Context) ([]Product, error) {
	httpStatus, respBody, err := cat.sender.Send(c, http.MethodGet, cat.baseURL+"/api/products", nil)
	if err != nil {
		return nil, err
	}
	if httpStatus < 200 || httpStatus >= 300 {
		remote := remoteError{}
		_ = json.Unmarshal(respBody, &remote)
		if remote.Error != "" {
			return nil, fmt.Errorf("%s", remote.Error)
		}
		return nil, fmt.Errorf("%s", defaultErrorMessage)
	}

	products := []Product{}
	err = json.Unmarshal(respBody, &products)
	if err != nil {
		return nil, fmt.Errorf("error parsing products: %w", err)
	}
	return products, nil
}

func (cat *Catalog) setStatus(status Status, message string) {
	cat.Lock()
	defer cat.Unlock()

	cat.status = status
	cat.errorMessage = message
}

// Products returns the snapshot ordered by product id.
func (cat *Catalog) Products() []Product {
	cat.RLock()
	defer cat.RUnlock()

	products := make([]Product, len(cat.products))
	copy(products, cat.products)
	sort.Slice(products, func(i, j int) bool {
		return products[i].ID < products[j].ID
	})
	return products
}

func (cat *Catalog) Lookup(productID int) (Product, bool) {
	cat.RLock()
	defer cat.RUnlock()

	p, found := cat.byID[productID]
	return p, found
}

func (cat *Catalog) Status() FetchStatus {
	cat.RLock()
	defer cat.RUnlock()

	return FetchStatus{
		Status:       cat.status,
		ErrorMessage: cat.errorMessage,
		ProductCount: len(cat.products),
	}
}
