package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusDRAFT     OrderStatus = "DRAFT"
	OrderStatusPENDING   OrderStatus = "PENDING"
	OrderStatusPAID      OrderStatus = "PAID"
	OrderStatusDELIVERED OrderStatus = "DELIVERED"
	OrderStatusCANCELLED OrderStatus = "CANCELLED"
)

type MovementKind string

const (
	MovementKindDEDUCTION MovementKind = "DEDUCTION"
	MovementKindINBOUND   MovementKind = "INBOUND"
)

type IngredientUnit string

const (
	IngredientUnitKg   IngredientUnit = "kg"
	IngredientUnitG    IngredientUnit = "g"
	IngredientUnitL    IngredientUnit = "L"
	IngredientUnitMl   IngredientUnit = "mL"
	IngredientUnitUnit IngredientUnit = "unit"
)

type AlertKind string

const (
	AlertKindLowStock   AlertKind = "LOW_STOCK"
	AlertKindExpirySoon AlertKind = "EXPIRY_SOON"
)

type TaskCategory string

const (
	TaskCategoryPrep      TaskCategory = "PREP"
	TaskCategoryAssembly  TaskCategory = "ASSEMBLY"
	TaskCategoryBaking    TaskCategory = "BAKING"
	TaskCategoryPackaging TaskCategory = "PACKAGING"
	TaskCategoryDelivery  TaskCategory = "DELIVERY"
)

// Setting keys form a closed set; handlers reject unknown keys.
const (
	SettingKeyCMVEstimatedPercent = "cmv_estimated_percent"
	SettingKeyAppName             = "app_name"
	SettingKeyLogoURL             = "logo_url"
)

type Ingredient struct {
	ID                uuid.UUID
	Name              string
	QuantityOnHand    pgtype.Numeric
	ExpiryDate        pgtype.Date
	UnitCost          pgtype.Numeric
	Unit              IngredientUnit
	LowStockThreshold pgtype.Numeric
	CreatedAt         time.Time
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Sku         pgtype.Text
	Description pgtype.Text
	SalePrice   pgtype.Numeric
	Category    pgtype.Text
	Active      bool
	CreatedAt   time.Time
}

type ProductCompositionEntry struct {
	ProductID       uuid.UUID
	IngredientID    uuid.UUID
	QuantityPerUnit pgtype.Numeric
}

type Customer struct {
	ID        uuid.UUID
	Name      string
	Whatsapp  pgtype.Text
	Notes     pgtype.Text
	CreatedAt time.Time
}

type Order struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	DeliveryFee pgtype.Numeric
	ServiceFee  pgtype.Numeric
	TotalAmount pgtype.Numeric
	Status      OrderStatus
	CreatedAt   time.Time
	PaidAt      pgtype.Timestamptz
	DeliveredAt pgtype.Timestamptz
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
}

type StockMovement struct {
	ID        uuid.UUID
	Kind      MovementKind
	Reference pgtype.Text
	CreatedAt time.Time
}

type StockMovementItem struct {
	MovementID   uuid.UUID
	IngredientID uuid.UUID
	Quantity     pgtype.Numeric
}

type Recipe struct {
	ID             uuid.UUID
	Name           string
	IngredientCost pgtype.Numeric
	YieldUnits     int32
	MarginPercent  pgtype.Numeric
	SuggestedPrice pgtype.Numeric
	ProfitPerUnit  pgtype.Numeric
	UpdatedAt      time.Time
}

type Setting struct {
	Key   string
	Value string
}

type Alert struct {
	ID          uuid.UUID
	Kind        AlertKind
	Title       string
	Description string
	Read        bool
	CreatedAt   time.Time
}

type ProductionTask struct {
	ID          uuid.UUID
	Title       string
	Description pgtype.Text
	Category    TaskCategory
	DueDate     pgtype.Date
	Done        bool
	CreatedAt   time.Time
}
