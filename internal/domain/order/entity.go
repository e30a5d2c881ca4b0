package order

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostsocial/boost-api/internal/pkg/smm"
)

// Components is the combo fan-out, stored as JSONB.
type Components []smm.Component

// Value implements driver.Valuer
func (c Components) Value() (driver.Value, error) {
	if len(c) == 0 {
		return nil, nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner
func (c *Components) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	}
	return errors.New("order: unsupported components type")
}

// Order is a customer order forwarded to one or more SMM panels.
type Order struct {
	ID                 uuid.UUID       `db:"id"`
	UserID             uuid.UUID       `db:"user_id"`
	ServiceID          uuid.NullUUID   `db:"service_id"`
	PromotionPackageID uuid.NullUUID   `db:"promotion_package_id"`
	Link               string          `db:"link"`
	Quantity           int             `db:"quantity"`
	Charge             decimal.Decimal `db:"charge"`
	Status             smm.Status      `db:"status"`

	SMMGenOrderID     sql.NullString `db:"smmgen_order_id"`
	SMMCostOrderID    sql.NullString `db:"smmcost_order_id"`
	JBSMMPanelOrderID sql.NullString `db:"jbsmmpanel_order_id"`
	Components        Components     `db:"component_provider_order_ids"`

	LastStatusCheck sql.NullTime `db:"last_status_check"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

// Target is one upstream order to query.
type Target struct {
	Provider smm.Provider
	OrderID  string
}

// IsCombo reports whether the order fans out to several providers.
func (o *Order) IsCombo() bool {
	return len(o.Components) > 0
}

// Targets returns what must be queried to learn the order status. Combo
// orders yield every component. Single orders yield the first populated
// provider id in the order smmgen, smmcost, jbsmmpanel.
func (o *Order) Targets() []Target {
	if o.IsCombo() {
		out := make([]Target, 0, len(o.Components))
		for _, c := range o.Components {
			if c.OrderID != "" {
				out = append(out, Target{Provider: c.Provider, OrderID: c.OrderID})
			}
		}
		return out
	}

	switch {
	case o.SMMGenOrderID.Valid && o.SMMGenOrderID.String != "":
		return []Target{{Provider: smm.ProviderSMMGen, OrderID: o.SMMGenOrderID.String}}
	case o.SMMCostOrderID.Valid && o.SMMCostOrderID.String != "":
		return []Target{{Provider: smm.ProviderSMMCost, OrderID: o.SMMCostOrderID.String}}
	case o.JBSMMPanelOrderID.Valid && o.JBSMMPanelOrderID.String != "":
		return []Target{{Provider: smm.ProviderJBSMMPanel, OrderID: o.JBSMMPanelOrderID.String}}
	}
	return nil
}

// SetProviderOrderID records the upstream id in the column of provider.
func (o *Order) SetProviderOrderID(p smm.Provider, id string) {
	v := sql.NullString{String: id, Valid: id != ""}
	switch p {
	case smm.ProviderSMMGen:
		o.SMMGenOrderID = v
	case smm.ProviderSMMCost:
		o.SMMCostOrderID = v
	case smm.ProviderJBSMMPanel:
		o.JBSMMPanelOrderID = v
	}
}

// CheckedWithin reports whether the order was checked less than d ago.
func (o *Order) CheckedWithin(now time.Time, d time.Duration) bool {
	return d > 0 && o.LastStatusCheck.Valid && now.Sub(o.LastStatusCheck.Time) < d
}
