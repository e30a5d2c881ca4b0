package admin

import "github.com/shopspring/decimal"

// DashboardStats is the admin overview.
type DashboardStats struct {
	Users struct {
		Total       int `json:"total" db:"total"`
		NewToday    int `json:"new_today" db:"new_today"`
		NewThisWeek int `json:"new_this_week" db:"new_this_week"`
	} `json:"users"`

	Orders struct {
		Total     int             `json:"total" db:"total"`
		Open      int             `json:"open" db:"open"`
		Completed int             `json:"completed" db:"completed"`
		Today     int             `json:"today" db:"today"`
		Revenue   decimal.Decimal `json:"revenue" db:"revenue"`
	} `json:"orders"`

	Deposits struct {
		Pending       int             `json:"pending" db:"pending"`
		PendingAmount decimal.Decimal `json:"pending_amount" db:"pending_amount"`
		ApprovedToday decimal.Decimal `json:"approved_today" db:"approved_today"`
	} `json:"deposits"`
}
