package cart

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MarcGrol/storefront/lib/myevents"
	"github.com/MarcGrol/storefront/lib/mykv"
	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/lib/mypublisher"
	"github.com/MarcGrol/storefront/lib/mytime"
	"github.com/MarcGrol/storefront/services/cart/cartevents"
	"github.com/MarcGrol/storefront/services/catalog"
)

type ProductLookup interface {
	Lookup(productID int) (catalog.Product, bool)
}

// Store is the cart of a single shopper: product id to quantity, checked against catalog stock.
type Store struct {
	sync.Mutex
	items     map[int]int
	products  ProductLookup
	publisher mypublisher.Publisher
	notifier  *Notifier
	writer    *writer
	logger    mylog.Logger
	closed    bool
}

// New hydrates the cart from kv. publisher may be nil.
func New(c context.Context, products ProductLookup, kv mykv.KeyValuer, publisher mypublisher.Publisher,
	timer mytime.Timer, notificationTTL time.Duration, logger mylog.Logger) *Store {
	return &Store{
		items:     hydrate(c, kv, logger),
		products:  products,
		publisher: publisher,
		notifier:  NewNotifier(timer, notificationTTL),
		writer:    newWriter(c, kv, logger),
		logger:    logger,
	}
}

// AddToCart adds qty on top of what is already in the cart, provided stock allows it.
func (s *Store) AddToCart(c context.Context, productID int, qty int) bool {
	s.Lock()
	product, known := s.products.Lookup(productID)
	stock := stockOf(product, known)
	current := s.items[productID]

	if current+qty > stock {
		remaining := max(0, stock-current)
		text := fmt.Sprintf("Cannot add %d item(s). Only %d item(s) left in stock.", qty, remaining)
		if remaining == 0 {
			text = "Cannot add any more — item is out of stock."
		}
		s.notifier.replace(Notification{Text: text, Kind: KindError})
		s.Unlock()
		s.notifier.deliver()

		s.logger.Log(c, "", mylog.SeverityInfo, "Rejected adding %d of product %d (stock %d, in cart %d)", qty, productID, stock, current)
		return false
	}

	newQty := current + qty
	s.setLocked(productID, newQty)
	count := s.countLocked()
	s.persistLocked()

	notification := Notification{
		Text:  fmt.Sprintf("Added %d item(s) to cart.", qty),
		Kind:  KindSuccess,
		Count: &count,
	}
	if known {
		notification.Product = &ProductBrief{ID: product.ID, Title: product.Title, Price: product.Price}
	}
	// replaced under the store lock so the live notification always matches the latest mutation
	s.notifier.replace(notification)
	s.Unlock()
	s.notifier.deliver()

	s.logger.Log(c, "", mylog.SeverityInfo, "Added %d of product %d to cart (now %d)", qty, productID, newQty)

	s.publish(c, cartevents.ItemAdded{ProductID: productID, Quantity: qty, NewQuantity: newQty})

	return true
}

// UpdateCartItem sets an absolute quantity. Zero or less removes the line.
func (s *Store) UpdateCartItem(c context.Context, productID int, qty int) bool {
	s.Lock()
	product, known := s.products.Lookup(productID)
	stock := stockOf(product, known)

	if qty > stock {
		s.notifier.replace(Notification{
			Text: fmt.Sprintf("Cannot set quantity to %d. Only %d item(s) in stock.", qty, stock),
			Kind: KindError,
		})
		s.Unlock()
		s.notifier.deliver()

		s.logger.Log(c, "", mylog.SeverityInfo, "Rejected setting product %d to %d (stock %d)", productID, qty, stock)
		return false
	}

	if qty <= 0 {
		s.Unlock()
		s.RemoveFromCart(c, productID)
		return true
	}

	s.setLocked(productID, qty)
	s.persistLocked()
	s.Unlock()

	s.logger.Log(c, "", mylog.SeverityInfo, "Set product %d in cart to %d", productID, qty)

	s.publish(c, cartevents.ItemUpdated{ProductID: productID, Quantity: qty})

	return true
}

func (s *Store) RemoveFromCart(c context.Context, productID int) {
	s.Lock()
	_, present := s.items[productID]
	delete(s.items, productID)
	s.persistLocked()
	s.Unlock()

	if present {
		s.logger.Log(c, "", mylog.SeverityInfo, "Removed product %d from cart", productID)
		s.publish(c, cartevents.ItemRemoved{ProductID: productID})
	}
}

func (s *Store) Clear(c context.Context) {
	s.Lock()
	productIDs := s.productIDsLocked()
	s.items = map[int]int{}
	s.persistLocked()
	s.Unlock()

	if len(productIDs) > 0 {
		s.logger.Log(c, "", mylog.SeverityInfo, "Cleared %d product(s) from cart", len(productIDs))
		s.publish(c, cartevents.CartCleared{ProductIDs: productIDs})
	}
}

func (s *Store) Count() int {
	s.Lock()
	defer s.Unlock()

	return s.countLocked()
}

// Total prices every line at the current catalog price. Unknown products count as 0.
func (s *Store) Total() float64 {
	total := 0.0
	for _, line := range s.Lines() {
		total += line.LineTotal
	}
	return total
}

func (s *Store) Items() map[int]int {
	s.Lock()
	defer s.Unlock()

	items := make(map[int]int, len(s.items))
	for productID, qty := range s.items {
		items[productID] = qty
	}
	return items
}

// Lines returns the cart ordered by product id.
func (s *Store) Lines() []Line {
	s.Lock()
	defer s.Unlock()

	lines := []Line{}
	for _, productID := range s.productIDsLocked() {
		qty := s.items[productID]
		product, known := s.products.Lookup(productID)
		line := Line{
			ProductID: productID,
			Quantity:  qty,
			Known:     known,
			Product:   product,
			Title:     product.Title,
		}
		if known {
			line.UnitPrice = product.Price.Value()
			line.LineTotal = line.UnitPrice * float64(qty)
		}
		lines = append(lines, line)
	}
	return lines
}

func (s *Store) Summary() Summary {
	lines := s.Lines()

	summary := Summary{
		Items: map[int]int{},
		Lines: lines,
	}
	for _, line := range lines {
		summary.Items[line.ProductID] = line.Quantity
		summary.Count += line.Quantity
		summary.Total += line.LineTotal
	}
	return summary
}

func (s *Store) Quantity(productID int) int {
	s.Lock()
	defer s.Unlock()

	return s.items[productID]
}

func (s *Store) Notifications() *Notifier {
	return s.notifier
}

// Close stops the notification timer and waits until the last snapshot is written.
func (s *Store) Close() {
	s.Lock()
	if s.closed {
		s.Unlock()
		return
	}
	s.closed = true
	s.Unlock()

	s.notifier.Close()
	s.writer.close()
}

func (s *Store) setLocked(productID int, qty int) {
	if qty <= 0 {
		delete(s.items, productID)
		return
	}
	s.items[productID] = qty
}

func (s *Store) countLocked() int {
	count := 0
	for _, qty := range s.items {
		count += qty
	}
	return count
}

func (s *Store) productIDsLocked() []int {
	productIDs := make([]int, 0, len(s.items))
	for productID := range s.items {
		productIDs = append(productIDs, productID)
	}
	sort.Ints(productIDs)
	return productIDs
}

func (s *Store) persistLocked() {
	if s.closed {
		return
	}
	s.writer.schedule(encodeItems(s.items))
}

func (s *Store) publish(c context.Context, event myevents.Event) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(c, cartevents.TopicName, event)
	if err != nil {
		s.logger.Log(c, "", mylog.SeverityWarn, "Error publishing %s: %s", event.GetEventTypeName(), err)
	}
}

func stockOf(product catalog.Product, known bool) int {
	if !known {
		return 0
	}
	return product.Stock
}
