package models

import "time"

// ProductCategory groups products for reporting
type ProductCategory string

const (
	CategoryElectronics    ProductCategory = "electronics"
	CategoryFurniture      ProductCategory = "furniture"
	CategoryOfficeSupplies ProductCategory = "office_supplies"
	CategoryHardware       ProductCategory = "hardware"
	CategorySoftware       ProductCategory = "software"
	CategoryRawMaterials   ProductCategory = "raw_materials"
	CategoryFinishedGoods  ProductCategory = "finished_goods"
	CategoryConsumables    ProductCategory = "consumables"
	CategoryOther          ProductCategory = "other"
)

// ProductStatus is the lifecycle state of a product
type ProductStatus string

const (
	ProductActive       ProductStatus = "active"
	ProductInactive     ProductStatus = "inactive"
	ProductDiscontinued ProductStatus = "discontinued"
)

// Product is a stock keeping unit of a tenant
type Product struct {
	ID              string          `json:"id" db:"id"`
	TenantID        string          `json:"tenant_id" db:"tenant_id"`
	SKU             string          `json:"sku" db:"sku"` // unique per tenant
	Name            string          `json:"name" db:"name"`
	Description     *string         `json:"description,omitempty" db:"description"`
	Category        ProductCategory `json:"category" db:"category"`
	UnitOfMeasure   string          `json:"unit_of_measure" db:"unit_of_measure"`
	UnitPrice       float64         `json:"unit_price" db:"unit_price"`
	CostPrice       float64         `json:"cost_price" db:"cost_price"`
	QuantityOnHand  int             `json:"quantity_on_hand" db:"quantity_on_hand"`
	ReorderLevel    int             `json:"reorder_level" db:"reorder_level"`
	ReorderQuantity int             `json:"reorder_quantity" db:"reorder_quantity"`
	Location        *string         `json:"location,omitempty" db:"location"`
	Barcode         *string         `json:"barcode,omitempty" db:"barcode"`
	ImageURL        *string         `json:"image_url,omitempty" db:"image_url"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	Status          ProductStatus   `json:"status" db:"status"`
	CreatedBy       string          `json:"created_by" db:"created_by"`
	UpdatedBy       *string         `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// NewProduct creates an active product with the default unit and reorder settings
func NewProduct(tenantID, sku, name string, category ProductCategory, unitPrice, costPrice float64, createdBy string) *Product {
	now := time.Now()
	if category == "" {
		category = CategoryOther
	}
	return &Product{
		ID:              NewPrefixedID("PRD", 12),
		TenantID:        tenantID,
		SKU:             sku,
		Name:            name,
		Category:        category,
		UnitOfMeasure:   "pcs",
		UnitPrice:       unitPrice,
		CostPrice:       costPrice,
		ReorderLevel:    10,
		ReorderQuantity: 50,
		IsActive:        true,
		Status:          ProductActive,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NeedsReorder reports whether stock is at or below the reorder level
func (p *Product) NeedsReorder() bool {
	return p.QuantityOnHand <= p.ReorderLevel
}

// StockValue is the stock valued at cost
func (p *Product) StockValue() float64 {
	return float64(p.QuantityOnHand) * p.CostPrice
}

// PotentialRevenue is the stock valued at the selling price
func (p *Product) PotentialRevenue() float64 {
	return float64(p.QuantityOnHand) * p.UnitPrice
}

// ProfitMargin is the margin percentage over the selling price
func (p *Product) ProfitMargin() float64 {
	if p.UnitPrice == 0 {
		return 0
	}
	return (p.UnitPrice - p.CostPrice) / p.UnitPrice * 100
}

// ProductView is a product with its derived figures, as returned by the API
type ProductView struct {
	*Product
	NeedsReorder     bool    `json:"needs_reorder"`
	StockValue       float64 `json:"stock_value"`
	PotentialRevenue float64 `json:"potential_revenue"`
	ProfitMargin     float64 `json:"profit_margin"`
}

// View returns the API representation of the product
func (p *Product) View() *ProductView {
	return &ProductView{
		Product:          p,
		NeedsReorder:     p.NeedsReorder(),
		StockValue:       p.StockValue(),
		PotentialRevenue: p.PotentialRevenue(),
		ProfitMargin:     p.ProfitMargin(),
	}
}

// ProductFilter narrows product listings
type ProductFilter struct {
	Category     *ProductCategory
	Status       *ProductStatus
	IsActive     *bool
	NeedsReorder *bool
	Search       string
	MinPrice     *float64
	MaxPrice     *float64
	Skip         int
	Limit        int
}

// ProductStatistics summarizes a tenant's catalogue
type ProductStatistics struct {
	TotalProducts    int     `json:"total_products"`
	ActiveProducts   int     `json:"active_products"`
	InactiveProducts int     `json:"inactive_products"`
	LowStockProducts int     `json:"low_stock_products"`
	TotalStockValue  float64 `json:"total_stock_value"`
}
