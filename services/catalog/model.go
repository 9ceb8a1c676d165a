package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

type Comment struct {
	User   string `json:"user"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

type Product struct {
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Price    Price     `json:"price"`
	Stock    int       `json:"stock"`
	Image    string    `json:"image"`
	Caption  string    `json:"caption,omitempty"`
	Details  string    `json:"details,omitempty"`
	Comments []Comment `json:"comments"`
}

func (p Product) AverageRating() float64 {
	if len(p.Comments) == 0 {
		return 0
	}
	sum := 0
	for _, c := range p.Comments {
		sum += c.Rating
	}
	return float64(sum) / float64(len(p.Comments))
}

func (p Product) InStock() bool {
	return p.Stock > 0
}

// Price keeps the price exactly as the remote api delivered it: a json number or a free-format string.
type Price struct {
	raw    string
	number bool
}

func PriceOf(value float64) Price {
	return Price{raw: strconv.FormatFloat(value, 'f', -1, 64), number: true}
}

func PriceText(text string) Price {
	return Price{raw: text}
}

func (p Price) Value() float64 {
	if p.number {
		// json numbers may use exponent notation, which ParsePrice would strip
		value, err := strconv.ParseFloat(p.raw, 64)
		if err == nil {
			return value
		}
	}
	return ParsePrice(p.raw)
}

func (p Price) String() string {
	return p.raw
}

func (p Price) Format() string {
	return fmt.Sprintf("$%.2f", p.Value())
}

func (p Price) MarshalJSON() ([]byte, error) {
	if p.number {
		return []byte(p.raw), nil
	}
	return json.Marshal(p.raw)
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = Price{}
	case len(data) > 0 && data[0] == '"':
		text := ""
		err := json.Unmarshal(data, &text)
		if err != nil {
			return err
		}
		*p = PriceText(text)
	default:
		number := json.Number("")
		err := json.Unmarshal(data, &number)
		if err != nil {
			return fmt.Errorf("price must be a number or a string: %w", err)
		}
		*p = Price{raw: number.String(), number: true}
	}
	return nil
}

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]`)
	leadingNumber = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// ParsePrice strips everything but digits, dots and minus signs and reads the leading number.
// Anything unparseable counts as 0.
func ParsePrice(raw string) float64 {
	cleaned := nonNumeric.ReplaceAllString(raw, "")
	match := leadingNumber.FindString(cleaned)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value
}

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type FetchStatus struct {
	Status       Status `json:"status"`
	ErrorMessage string `json:"error,omitempty"`
	ProductCount int    `json:"productCount"`
}

type ProductDetailPageInfo struct {
	Product  Product
	Quantity int
}
