package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

type Activity struct {
	ID            string          `json:"id"`
	CategoryID    string          `json:"categoryId"`
	Category      *Category       `json:"category,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	ImageURLs     []string        `json:"imageUrls"`
	Price         decimal.Decimal `json:"price"`
	PriceDiscount decimal.Decimal `json:"price_discount"`
	Rating        float64         `json:"rating"`
	TotalReviews  int             `json:"total_reviews"`
	Facilities    string          `json:"facilities"`
	Address       string          `json:"address"`
	Province      string          `json:"province"`
	City          string          `json:"city"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type Promo struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	ImageURL           string          `json:"imageUrl"`
	TermsCondition     string          `json:"terms_condition"`
	PromoCode          string          `json:"promo_code"`
	PromoDiscountPrice decimal.Decimal `json:"promo_discount_price"`
	MinimumClaimPrice  decimal.Decimal `json:"minimum_claim_price"`
}
