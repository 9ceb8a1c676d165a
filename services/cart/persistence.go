package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MarcGrol/storefront/lib/mykv"
	"github.com/MarcGrol/storefront/lib/mylog"
)

const StorageKey = "cart_items_v1"

func encodeItems(items map[int]int) string {
	asStrings := make(map[string]int, len(items))
	for productID, qty := range items {
		asStrings[strconv.Itoa(productID)] = qty
	}
	data, _ := json.Marshal(asStrings)
	return string(data)
}

// decodeItems keeps only entries with an integer product id and a positive whole quantity.
func decodeItems(raw string) (map[int]int, error) {
	parsed := map[string]any{}
	err := json.Unmarshal([]byte(raw), &parsed)
	if err != nil {
		return nil, fmt.Errorf("error parsing stored cart: %w", err)
	}

	items := map[int]int{}
	for key, value := range parsed {
		productID, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		qty, ok := quantityOf(value)
		if !ok || qty <= 0 {
			continue
		}
		items[productID] = qty
	}
	return items, nil
}

func quantityOf(value any) (int, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func hydrate(c context.Context, kv mykv.KeyValuer, logger mylog.Logger) map[int]int {
	raw, found, err := kv.Get(c, StorageKey)
	if err != nil {
		logger.Log(c, "", mylog.SeverityWarn, "Error reading stored cart, starting empty: %s", err)
		return map[int]int{}
	}
	if !found || raw == "" {
		return map[int]int{}
	}

	items, err := decodeItems(raw)
	if err != nil {
		logger.Log(c, "", mylog.SeverityWarn, "Ignoring stored cart: %s", err)
		return map[int]int{}
	}
	return items
}

// writer persists cart snapshots in the background. Only the latest unwritten snapshot is kept.
type writer struct {
	kv      mykv.KeyValuer
	logger  mylog.Logger
	pending chan string
	done    chan struct{}
}

func newWriter(c context.Context, kv mykv.KeyValuer, logger mylog.Logger) *writer {
	w := &writer{
		kv:      kv,
		logger:  logger,
		pending: make(chan string, 1),
		done:    make(chan struct{}),
	}
	go w.run(context.WithoutCancel(c))
	return w
}

// schedule must not be called concurrently or after close.
func (w *writer) schedule(snapshot string) {
	for {
		select {
		case w.pending <- snapshot:
			return
		default:
			// replace the stale snapshot
			select {
			case <-w.pending:
			default:
			}
		}
	}
}

func (w *writer) run(c context.Context) {
	defer close(w.done)

	for snapshot := range w.pending {
		err := w.kv.Set(c, StorageKey, snapshot)
		if err != nil {
			w.logger.Log(c, "", mylog.SeverityWarn, "Error persisting cart: %s", err)
		}
	}
}

// close writes whatever is still pending and waits for the writer to stop.
func (w *writer) close() {
	close(w.pending)
	<-w.done
}
