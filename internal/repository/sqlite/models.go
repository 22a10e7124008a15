package sqlite

import (
	"time"

	"github.com/forrex322/shop/internal/domain"
)

type categoryModel struct {
	ID   string `gorm:"primaryKey"`
	Name string `gorm:"not null"`
	Slug string `gorm:"not null;uniqueIndex"`
}

func (categoryModel) TableName() string { return "categories" }

func (m categoryModel) toDomain() domain.Category {
	return domain.Category{ID: m.ID, Name: m.Name, Slug: m.Slug}
}

type productModel struct {
	ID          string         `gorm:"primaryKey"`
	CategoryID  string         `gorm:"not null;index"`
	Category    *categoryModel `gorm:"foreignKey:CategoryID"`
	Title       string         `gorm:"not null"`
	Slug        string         `gorm:"not null;uniqueIndex"`
	Description string
	ImageURL    string
	Price       int64 `gorm:"not null"`
	CreatedAt   time.Time
}

func (productModel) TableName() string { return "products" }

func (m productModel) toDomain() domain.Product {
	return domain.Product{
		ID:          m.ID,
		CategoryID:  m.CategoryID,
		Title:       m.Title,
		Slug:        m.Slug,
		Description: m.Description,
		ImageURL:    m.ImageURL,
		Price:       m.Price,
		CreatedAt:   m.CreatedAt,
	}
}

type customerModel struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"not null;uniqueIndex"`
	Username     string `gorm:"not null;uniqueIndex"`
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Address      string
	CreatedAt    time.Time
}

func (customerModel) TableName() string { return "customers" }

func (m customerModel) toDomain() *domain.Customer {
	return &domain.Customer{
		ID:           m.ID,
		UserID:       m.UserID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Phone:        m.Phone,
		Address:      m.Address,
		CreatedAt:    m.CreatedAt,
	}
}

// cartModel is a carts row. Migrate adds idx_carts_open_owner on top so an
// owner has at most one open cart.
type cartModel struct {
	ID            string `gorm:"primaryKey"`
	OwnerID       string `gorm:"not null;index"`
	TotalQuantity int    `gorm:"not null"`
	TotalPrice    int64  `gorm:"not null"`
	Finalized     bool   `gorm:"not null"`
	OrderID       *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (cartModel) TableName() string { return "carts" }

func (m cartModel) toDomain() *domain.Cart {
	c := &domain.Cart{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		TotalQuantity: m.TotalQuantity,
		TotalPrice:    m.TotalPrice,
		Finalized:     m.Finalized,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.OrderID != nil {
		c.OrderID = *m.OrderID
	}
	return c
}

type cartItemModel struct {
	ID        string        `gorm:"primaryKey"`
	OwnerID   string        `gorm:"not null;uniqueIndex:uq_cart_items_owner_cart_product,priority:1"`
	CartID    string        `gorm:"not null;uniqueIndex:uq_cart_items_owner_cart_product,priority:2;index"`
	ProductID string        `gorm:"not null;uniqueIndex:uq_cart_items_owner_cart_product,priority:3"`
	Cart      *cartModel    `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	Product   *productModel `gorm:"foreignKey:ProductID"`
	Quantity  int           `gorm:"not null;check:quantity >= 1"`
	CreatedAt time.Time
}

func (cartItemModel) TableName() string { return "cart_items" }

func (m cartItemModel) toDomain() domain.CartItem {
	it := domain.CartItem{
		ID:        m.ID,
		CartID:    m.CartID,
		OwnerID:   m.OwnerID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		CreatedAt: m.CreatedAt,
	}
	if m.Product != nil {
		it.Product = m.Product.toDomain()
	}
	return it
}

type orderModel struct {
	ID            string `gorm:"primaryKey"`
	CustomerID    string `gorm:"not null;index"`
	CartID        string `gorm:"not null;uniqueIndex"`
	FirstName     string `gorm:"not null"`
	LastName      string `gorm:"not null"`
	Phone         string `gorm:"not null"`
	Address       string `gorm:"not null"`
	BuyingType    string `gorm:"not null"`
	Status        string `gorm:"not null"`
	Comment       string `gorm:"not null"`
	OrderDate     time.Time
	TotalQuantity int   `gorm:"not null"`
	TotalPrice    int64 `gorm:"not null"`
	CreatedAt     time.Time
}

func (orderModel) TableName() string { return "orders" }

func newOrderModel(o *domain.Order) *orderModel {
	return &orderModel{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		CartID:        o.CartID,
		FirstName:     o.FirstName,
		LastName:      o.LastName,
		Phone:         o.Phone,
		Address:       o.Address,
		BuyingType:    string(o.BuyingType),
		Status:        o.Status,
		Comment:       o.Comment,
		OrderDate:     o.OrderDate,
		TotalQuantity: o.TotalQuantity,
		TotalPrice:    o.TotalPrice,
		CreatedAt:     o.CreatedAt,
	}
}

func (m orderModel) toDomain() domain.Order {
	return domain.Order{
		ID:            m.ID,
		CustomerID:    m.CustomerID,
		CartID:        m.CartID,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Phone:         m.Phone,
		Address:       m.Address,
		BuyingType:    domain.BuyingType(m.BuyingType),
		Status:        m.Status,
		Comment:       m.Comment,
		OrderDate:     m.OrderDate.UTC(),
		TotalQuantity: m.TotalQuantity,
		TotalPrice:    m.TotalPrice,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

type customerOrderModel struct {
	CustomerID string `gorm:"primaryKey"`
	OrderID    string `gorm:"primaryKey"`
}

func (customerOrderModel) TableName() string { return "customer_orders" }
