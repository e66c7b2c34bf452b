package models

// LocalizedName maps a language code to the display name in that language.
type LocalizedName map[string]string

// Get returns the name for the given locale, falling back to any
// non-empty entry when the locale is missing.
func (n LocalizedName) Get(locale string) string {
	if name, ok := n[locale]; ok && name != "" {
		return name
	}
	for _, name := range n {
		if name != "" {
			return name
		}
	}
	return ""
}

// Line status values. A line starts as pending and toggles to fulfilled
// when the kitchen validates it.
const (
	StatusPending   = "pending"
	StatusFulfilled = "fulfilled"
)

// ItemSnapshot is the catalog entry frozen at order time. The live menu may
// change afterwards; the line keeps the prices it was ordered at.
type ItemSnapshot struct {
	ID              string        `json:"id"`
	Price           float64       `json:"price"`
	SupplementPrice float64       `json:"supplementPrice,omitempty"`
	Name            LocalizedName `json:"name"`
}

// OrderLine is one ordered dish instance tied to a table. Timestamp is the
// creation instant in Unix milliseconds and doubles as the line's identity
// within its table.
type OrderLine struct {
	Table              int          `json:"table"`
	Timestamp          int64        `json:"timestamp"`
	Item               ItemSnapshot `json:"item"`
	Status             string       `json:"status"`
	IngredientsRemoved []string     `json:"ingredientsRemoved,omitempty"`
	IngredientsAdded   []string     `json:"ingredientsAdded,omitempty"`
	Supplements        []string     `json:"supplements,omitempty"`
	ValidatedAt        int64        `json:"validatedAt,omitempty"`
}

// EffectivePrice is the single source of truth for a line's price:
// base price plus one supplement unit per added ingredient.
func (l OrderLine) EffectivePrice() float64 {
	return l.Item.Price + l.Item.SupplementPrice*float64(len(l.IngredientsAdded))
}

// ArchivedLine is an OrderLine plus the table's people count at the moment
// the table was closed.
type ArchivedLine struct {
	OrderLine
	PeopleCount int `json:"peopleCount"`
}

// StockCounter tracks remaining sellable quantity for one catalog item.
// An infinite item is never decremented or incremented.
type StockCounter struct {
	Remaining int  `json:"remaining"`
	Infinite  bool `json:"infinite"`
}

// LedgerRecord is the persisted shape of the live ledger: every open order
// line plus the people count per table. It is rewritten wholesale on each
// mutation.
type LedgerRecord struct {
	Orders      []OrderLine `json:"orders"`
	TablePeople map[int]int `json:"tablePeople"`
}

// DayRecord is one calendar day's partition of the archive.
type DayRecord struct {
	Orders       []ArchivedLine `json:"orders"`
	TotalRevenue float64        `json:"totalRevenue"`
	OrderCount   int            `json:"orderCount"`
}

// MenuItem is a full catalog entry as loaded from the menu file.
type MenuItem struct {
	ID              string        `json:"id"`
	Price           float64       `json:"price"`
	Name            LocalizedName `json:"name"`
	Category        Category      `json:"category"`
	Image           string        `json:"image,omitempty"`
	Quantity        Quantity      `json:"quantity"`
	Ingredients     []string      `json:"ingredients,omitempty"`
	SupplementPrice float64       `json:"supplementPrice,omitempty"`
	Supplements     []string      `json:"supplements,omitempty"`
	Reference       string        `json:"reference,omitempty"`
}

type Category struct {
	ID   string        `json:"id"`
	Name LocalizedName `json:"name"`
}

type Quantity struct {
	Amount   int  `json:"amount"`
	Infinite bool `json:"infinite"`
}

// Ingredient is a catalog ingredient usable as a removal or a supplement.
type Ingredient struct {
	ID   string        `json:"id"`
	Name LocalizedName `json:"name"`
}

// Inbound message actions. An empty action means "add" (legacy wire format
// from the first order-entry clients).
const (
	ActionAdd            = "add"
	ActionRemove         = "remove"
	ActionModify         = "modify"
	ActionSetStatus      = "setStatus"
	ActionCloseTable     = "closeTable"
	ActionSetPeopleCount = "setPeopleCount"
	ActionGetState       = "getState"
	ActionGetMenu        = "getMenu"
	ActionGetIngredients = "getIngredients"
)

// InboundMessage is the union of every message shape a remote client may
// send. Which fields are required depends on the action; see the sync
// server's validation.
type InboundMessage struct {
	Action             string        `json:"action,omitempty"`
	Table              int           `json:"table,omitempty"`
	Timestamp          int64         `json:"timestamp,omitempty"`
	OriginalTimestamp  int64         `json:"originalTimestamp,omitempty"`
	LineTimestamp      int64         `json:"lineTimestamp,omitempty"`
	Status             string        `json:"status,omitempty"`
	Count              int           `json:"count,omitempty"`
	Item               *ItemSnapshot `json:"item,omitempty"`
	IngredientsRemoved []string      `json:"ingredientsRemoved,omitempty"`
	IngredientsAdded   []string      `json:"ingredientsAdded,omitempty"`
	Supplements        []string      `json:"supplements,omitempty"`
}

// StateSnapshot is the full outbound serialization of the live ledger,
// regenerated from scratch after every successful mutation.
type StateSnapshot struct {
	TotalTables int          `json:"totalTables"`
	Orders      []OrderGroup `json:"orders"`
}

// OrderGroup bundles the lines sharing one (table, timestamp) pair under a
// synthetic "<table>_<timestamp>" order id for display clients.
type OrderGroup struct {
	OrderID   string         `json:"orderId"`
	Table     int            `json:"table"`
	Timestamp int64          `json:"timestamp"`
	Items     []SnapshotItem `json:"items"`
}

// SnapshotItem carries every line field a display client needs, including
// the default recipe from the catalog.
type SnapshotItem struct {
	ID                 string        `json:"id"`
	Price              float64       `json:"price"`
	SupplementPrice    float64       `json:"supplementPrice"`
	Name               LocalizedName `json:"name"`
	Status             string        `json:"status"`
	Ingredients        []string      `json:"ingredients"`
	IngredientsRemoved []string      `json:"ingredientsRemoved"`
	IngredientsAdded   []string      `json:"ingredientsAdded"`
	Supplements        []string      `json:"supplements"`
}

// MenuResponse answers a getMenu request.
type MenuResponse struct {
	Menu []MenuItem `json:"menu"`
}

// IngredientsResponse answers a getIngredients request.
type IngredientsResponse struct {
	Ingredients []Ingredient `json:"ingredients"`
}

// CloseoutEvent is published to the fanout exchange when a table is closed,
// so downstream consumers can follow the day's business without polling.
type CloseoutEvent struct {
	Table         int     `json:"table"`
	Date          string  `json:"date"`
	ArchivedCount int     `json:"archived_count"`
	Revenue       float64 `json:"revenue"`
	PeopleCount   int     `json:"people_count"`
	ClosedAt      int64   `json:"closed_at"`
}

// LedgerStats are the live counters shown on the kitchen display header.
type LedgerStats struct {
	TotalOrders    int `json:"total_orders"`
	ActiveTables   int `json:"active_tables"`
	PendingCount   int `json:"pending_count"`
	FulfilledCount int `json:"fulfilled_count"`
}

// TableReport aggregates one table's archived lines inside a daily report.
type TableReport struct {
	Lines []ArchivedLine `json:"lines"`
	Total float64        `json:"total"`
	Count int            `json:"count"`
}

// DailyReport is the read-side aggregation over one day's archive partition.
type DailyReport struct {
	Date          string              `json:"date"`
	TotalRevenue  float64             `json:"total_revenue"`
	OrderCount    int                 `json:"order_count"`
	TableCount    int                 `json:"table_count"`
	AverageTicket float64             `json:"average_ticket"`
	TotalCovers   int                 `json:"total_covers"`
	PerTable      map[int]TableReport `json:"per_table"`
	PerDish       map[string]int      `json:"per_dish"`
	Chronological []ArchivedLine      `json:"chronological"`
}
