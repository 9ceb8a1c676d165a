package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/storefront/lib/mykv"
	"github.com/MarcGrol/storefront/lib/mylog"
	"github.com/MarcGrol/storefront/lib/mypublisher"
	"github.com/MarcGrol/storefront/lib/mystore"
	"github.com/MarcGrol/storefront/lib/mytime"
	"github.com/MarcGrol/storefront/services/cart/cartevents"
	"github.com/MarcGrol/storefront/services/catalog"
)

type fakeCatalog map[int]catalog.Product

func (f fakeCatalog) Lookup(productID int) (catalog.Product, bool) {
	p, found := f[productID]
	return p, found
}

var products = fakeCatalog{
	7: {ID: 7, Title: "Headphones", Price: catalog.PriceText("$12.50"), Stock: 3},
	8: {ID: 8, Title: "Mystery box", Price: catalog.PriceText("abc"), Stock: 5},
	9: {ID: 9, Title: "Cable", Price: catalog.PriceOf(4), Stock: 10},
	0: {ID: 0, Title: "Sold out", Price: catalog.PriceOf(1), Stock: 0},
}

type testContext struct {
	c         context.Context
	kv        mykv.KeyValuer
	clock     *mytime.FakeClock
	publisher *mypublisher.MockPublisher
}

func newKV(t *testing.T, stored string) mykv.KeyValuer {
	store, cleanup, err := mystore.NewInMemoryStore[mykv.Entry](context.TODO())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	kv := mykv.NewStoreBacked(store)
	if stored != "" {
		require.NoError(t, kv.Set(context.TODO(), StorageKey, stored))
	}
	return kv
}

func setupStore(t *testing.T, stored string) (testContext, *Store) {
	ctrl := gomock.NewController(t)
	tc := testContext{
		c:         context.TODO(),
		kv:        newKV(t, stored),
		clock:     mytime.NewFakeClock(mytime.ExampleTime),
		publisher: mypublisher.NewMockPublisher(ctrl),
	}
	sut := New(tc.c, products, tc.kv, tc.publisher, tc.clock, DefaultNotificationTTL, mylog.New("cart"))
	t.Cleanup(sut.Close)

	return tc, sut
}

func (tc testContext) ignoreEvents() {
	tc.publisher.EXPECT().Publish(gomock.Any(), cartevents.TopicName, gomock.Any()).Return(nil).AnyTimes()
}

func (tc testContext) stored(t *testing.T, sut *Store) string {
	sut.Close()
	raw, found, err := tc.kv.Get(tc.c, StorageKey)
	require.NoError(t, err)
	require.True(t, found)
	return raw
}

func intPtr(i int) *int {
	return &i
}

func TestAddToCart(t *testing.T) {
	t.Run("Add within stock", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")

		// given
		tc.publisher.EXPECT().Publish(gomock.Any(), cartevents.TopicName,
			cartevents.ItemAdded{ProductID: 7, Quantity: 2, NewQuantity: 2}).Return(nil)

		// when
		accepted := sut.AddToCart(tc.c, 7, 2)

		// then
		assert.True(t, accepted)
		assert.Equal(t, 2, sut.Count())
		assert.Equal(t, map[int]int{7: 2}, sut.Items())
		assert.Equal(t, &Notification{
			Text:  "Added 2 item(s) to cart.",
			Kind:  KindSuccess,
			Count: intPtr(2),
			Product: &ProductBrief{
				ID:    7,
				Title: "Headphones",
				Price: catalog.PriceText("$12.50"),
			},
		}, sut.Notifications().Current())
	})

	t.Run("Add beyond remaining stock", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")
		tc.ignoreEvents()

		// given
		require.True(t, sut.AddToCart(tc.c, 7, 2))

		// when
		accepted := sut.AddToCart(tc.c, 7, 2)

		// then
		assert.False(t, accepted)
		assert.Equal(t, 2, sut.Count())
		assert.Equal(t, &Notification{
			Text: "Cannot add 2 item(s). Only 1 item(s) left in stock.",
			Kind: KindError,
		}, sut.Notifications().Current())
	})

	t.Run("Add when nothing is left", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")
		tc.ignoreEvents()

		// given
		require.True(t, sut.AddToCart(tc.c, 7, 3))

		// when
		accepted := sut.AddToCart(tc.c, 7, 1)

		// then
		assert.False(t, accepted)
		assert.Equal(t, 3, sut.Quantity(7))
		assert.Equal(t, "Cannot add any more — item is out of stock.", sut.Notifications().Current().Text)
	})

	t.Run("Add sold out product", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")

		// when
		accepted := sut.AddToCart(tc.c, 0, 1)

		// then
		assert.False(t, accepted)
		assert.Empty(t, sut.Items())
		assert.Equal(t, "Cannot add any more — item is out of stock.", sut.Notifications().Current().Text)
	})

	t.Run("Add unknown product", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")

		// when
		accepted := sut.AddToCart(tc.c, 42, 1)

		// then
		assert.False(t, accepted)
		assert.Equal(t, 0, sut.Count())
		assert.True(t, sut.Notifications().Current().IsError())
	})

	t.Run("Publish failure does not reject add", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")

		// given
		tc.publisher.EXPECT().Publish(gomock.Any(), cartevents.TopicName, gomock.Any()).Return(errors.New("unavailable"))

		// when
		accepted := sut.AddToCart(tc.c, 9, 1)

		// then
		assert.True(t, accepted)
		assert.Equal(t, 1, sut.Count())
	})
}

func TestUpdateCartItem(t *testing.T) {
	t.Run("Update within stock is silent", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")

		// given
		tc.publisher.EXPECT().Publish(gomock.Any(), cartevents.TopicName,
			cartevents.ItemUpdated{ProductID: 9, Quantity: 6}).Return(nil)

		// when
		accepted := sut.UpdateCartItem(tc.c, 9, 6)

		// then
		assert.True(t, accepted)
		assert.Equal(t, 6, sut.Quantity(9))
		assert.Nil(t, sut.Notifications().Current())
	})

	t.Run("Update above stock", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")
		tc.ignoreEvents()

		// given
		require.True(t, sut.AddToCart(tc.c, 7, 1))

		// when
		accepted := sut.UpdateCartItem(tc.c, 7, 4)

		// then
		assert.False(t, accepted)
		assert.Equal(t, 1, sut.Quantity(7))
		assert.Equal(t, &Notification{
			Text: "Cannot set quantity to 4. Only 3 item(s) in stock.",
			Kind: KindError,
		}, sut.Notifications().Current())
	})

	t.Run("Update to zero removes", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")

		// given
		tc.publisher.EXPECT().Publish(gomock.Any(), cartevents.TopicName, cartevents.ItemAdded{ProductID: 7, Quantity: 2, NewQuantity: 2}).Return(nil)
		tc.publisher.EXPECT().Publish(gomock.Any(), cartevents.TopicName, cartevents.ItemRemoved{ProductID: 7}).Return(nil)
		require.True(t, sut.AddToCart(tc.c, 7, 2))

		// when
		accepted := sut.UpdateCartItem(tc.c, 7, 0)

		// then
		assert.True(t, accepted)
		_, present := sut.Items()[7]
		assert.False(t, present)
		assert.Equal(t, 0, sut.Count())
	})

	t.Run("Update negative removes", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, `{"9":4}`)
		tc.ignoreEvents()

		// when
		accepted := sut.UpdateCartItem(tc.c, 9, -3)

		// then
		assert.True(t, accepted)
		assert.Empty(t, sut.Items())
	})
}

func TestRemoveAndClear(t *testing.T) {
	t.Run("Remove absent product publishes nothing", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, `{"9":4}`)

		// when
		sut.RemoveFromCart(tc.c, 7)

		// then
		assert.Equal(t, map[int]int{9: 4}, sut.Items())
		assert.Nil(t, sut.Notifications().Current())
	})

	t.Run("Remove present product", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, `{"9":4,"7":1}`)

		// given
		tc.publisher.EXPECT().Publish(gomock.Any(), cartevents.TopicName, cartevents.ItemRemoved{ProductID: 9}).Return(nil)

		// when
		sut.RemoveFromCart(tc.c, 9)

		// then
		assert.Equal(t, map[int]int{7: 1}, sut.Items())
		assert.Equal(t, `{"7":1}`, tc.stored(t, sut))
	})

	t.Run("Clear", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, `{"9":4,"7":1}`)

		// given
		tc.publisher.EXPECT().Publish(gomock.Any(), cartevents.TopicName, cartevents.CartCleared{ProductIDs: []int{7, 9}}).Return(nil)

		// when
		sut.Clear(tc.c)

		// then
		assert.Equal(t, 0, sut.Count())
		assert.Equal(t, `{}`, tc.stored(t, sut))
	})
}

func TestDerivedValues(t *testing.T) {
	t.Run("Total uses lenient prices", func(t *testing.T) {
		// setup
		_, sut := setupStore(t, `{"7":3,"8":2}`)

		// then
		assert.Equal(t, 37.5, sut.Total())
		assert.Equal(t, 5, sut.Count())
	})

	t.Run("Lines are ordered and resolved", func(t *testing.T) {
		// setup
		_, sut := setupStore(t, `{"9":2,"7":1,"42":1}`)

		// when
		lines := sut.Lines()

		// then
		require.Len(t, lines, 3)
		assert.Equal(t, []int{7, 9, 42}, []int{lines[0].ProductID, lines[1].ProductID, lines[2].ProductID})
		assert.Equal(t, 12.5, lines[0].UnitPrice)
		assert.Equal(t, 8.0, lines[1].LineTotal)
		assert.False(t, lines[2].Known)
		assert.Equal(t, 0.0, lines[2].LineTotal)
	})

	t.Run("Summary", func(t *testing.T) {
		// setup
		_, sut := setupStore(t, `{"9":2,"7":1}`)

		// when
		summary := sut.Summary()

		// then
		assert.Equal(t, map[int]int{7: 1, 9: 2}, summary.Items)
		assert.Equal(t, 3, summary.Count)
		assert.Equal(t, 20.5, summary.Total)
		assert.Equal(t, sut.Total(), summary.Total)
	})
}

func TestPersistence(t *testing.T) {
	t.Run("Every mutation is written", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")
		tc.ignoreEvents()

		// when
		sut.AddToCart(tc.c, 7, 2)
		sut.AddToCart(tc.c, 9, 1)
		sut.UpdateCartItem(tc.c, 9, 5)

		// then
		assert.JSONEq(t, `{"7":2,"9":5}`, tc.stored(t, sut))
	})

	t.Run("Rehydrate restores the cart", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")
		tc.ignoreEvents()

		// given
		sut.AddToCart(tc.c, 7, 2)
		sut.AddToCart(tc.c, 9, 4)
		sut.Close()

		// when
		restored := New(tc.c, products, tc.kv, nil, tc.clock, DefaultNotificationTTL, mylog.New("cart"))
		defer restored.Close()

		// then
		assert.Equal(t, map[int]int{7: 2, 9: 4}, restored.Items())
		assert.Equal(t, 6, restored.Count())
	})

	t.Run("Invalid entries are dropped on hydration", func(t *testing.T) {
		// setup
		_, sut := setupStore(t, `{"7":2,"abc":1,"3":0,"4":-1,"5":"2","6":1.5,"8":true}`)

		// then
		assert.Equal(t, map[int]int{7: 2, 5: 2}, sut.Items())
	})

	t.Run("Unparseable stored cart starts empty", func(t *testing.T) {
		// setup
		_, sut := setupStore(t, `not json`)

		// then
		assert.Empty(t, sut.Items())
	})

	t.Run("Backend failures are swallowed", func(t *testing.T) {
		// setup
		ctrl := gomock.NewController(t)
		kv := mykv.NewMockKeyValuer(ctrl)

		// given
		kv.EXPECT().Get(gomock.Any(), StorageKey).Return("", false, errors.New("disk on fire"))
		kv.EXPECT().Set(gomock.Any(), StorageKey, gomock.Any()).Return(errors.New("disk on fire")).MinTimes(1)

		// when
		sut := New(context.TODO(), products, kv, nil, mytime.NewFakeClock(mytime.ExampleTime), DefaultNotificationTTL, mylog.New("cart"))
		accepted := sut.AddToCart(context.TODO(), 9, 1)
		sut.Close()

		// then
		assert.True(t, accepted)
		assert.Equal(t, 1, sut.Count())
	})
}

func TestNotificationLifetime(t *testing.T) {
	t.Run("Notification clears after three seconds", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")
		tc.ignoreEvents()

		// given
		sut.AddToCart(tc.c, 9, 1)

		// when
		tc.clock.Advance(2999 * time.Millisecond)

		// then
		assert.NotNil(t, sut.Notifications().Current())

		// when
		tc.clock.Advance(time.Millisecond)

		// then
		assert.Nil(t, sut.Notifications().Current())
	})

	t.Run("New notification restarts the lifetime", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")
		tc.ignoreEvents()

		// given
		sut.AddToCart(tc.c, 9, 1)
		tc.clock.Advance(2 * time.Second)
		sut.AddToCart(tc.c, 9, 2)

		// when
		tc.clock.Advance(2 * time.Second)

		// then
		assert.Equal(t, "Added 2 item(s) to cart.", sut.Notifications().Current().Text)

		// when
		tc.clock.Advance(time.Second)

		// then
		assert.Nil(t, sut.Notifications().Current())
	})
}

func TestInvariants(t *testing.T) {
	t.Run("Random operations keep quantities positive and within stock", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")
		tc.ignoreEvents()
		rnd := rand.New(rand.NewSource(42))
		productIDs := []int{0, 7, 8, 9, 42}

		for i := 0; i < 500; i++ {
			productID := productIDs[rnd.Intn(len(productIDs))]
			switch rnd.Intn(3) {
			case 0:
				sut.AddToCart(tc.c, productID, 1+rnd.Intn(4))
			case 1:
				sut.UpdateCartItem(tc.c, productID, rnd.Intn(12)-1)
			case 2:
				sut.RemoveFromCart(tc.c, productID)
			}

			sum := 0
			for id, qty := range sut.Items() {
				sum += qty
				assert.Greater(t, qty, 0)
				assert.LessOrEqual(t, qty, products[id].Stock)
			}
			assert.Equal(t, sum, sut.Count())
		}
	})

	t.Run("Concurrent adds never exceed stock", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")
		tc.ignoreEvents()

		// when
		accepted := make(chan bool, 50)
		wg := sync.WaitGroup{}
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				accepted <- sut.AddToCart(tc.c, 9, 1)
			}()
		}
		wg.Wait()
		close(accepted)

		// then
		acceptedCount := 0
		for a := range accepted {
			if a {
				acceptedCount++
			}
		}
		assert.Equal(t, 10, acceptedCount)
		assert.Equal(t, 10, sut.Count())
	})
	t.Run("Concurrent adds leave the newest notification live", func(t *testing.T) {
		// setup
		tc, sut := setupStore(t, "")
		tc.ignoreEvents()

		// given
		mutex := sync.Mutex{}
		var lastDelivered *Notification
		sut.Notifications().Subscribe(func(n *Notification) {
			mutex.Lock()
			defer mutex.Unlock()
			lastDelivered = n
		})

		// when
		wg := sync.WaitGroup{}
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sut.AddToCart(tc.c, 9, 1)
			}()
		}
		wg.Wait()

		// then
		current := sut.Notifications().Current()
		require.NotNil(t, current)
		require.NotNil(t, current.Count)
		assert.Equal(t, sut.Count(), *current.Count)
		assert.Equal(t, 10, *current.Count)
		mutex.Lock()
		defer mutex.Unlock()
		assert.Equal(t, current, lastDelivered)
	})
}

func TestClose(t *testing.T) {
	t.Run("Close stops the background writer", func(t *testing.T) {
		defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

		// setup
		kv := newKV(t, "")
		sut := New(context.TODO(), products, kv, nil, mytime.NewFakeClock(mytime.ExampleTime), DefaultNotificationTTL, mylog.New("cart"))

		// given
		sut.AddToCart(context.TODO(), 7, 1)

		// when
		sut.Close()
		sut.Close()

		// then
		raw, found, err := kv.Get(context.TODO(), StorageKey)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `{"7":1}`, raw)
	})
}
