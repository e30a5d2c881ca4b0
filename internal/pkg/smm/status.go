package smm

import (
	"strings"
)

// Status is the canonical order status stored on orders.
type Status string

const (
	StatusUnknown    Status = ""
	StatusPending    Status = "pending"
	StatusInProgress Status = "in progress"
	StatusProcessing Status = "processing"
	StatusPartial    Status = "partial"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
	StatusRefunds    Status = "refunds"
)

// Valid reports whether s is part of the canonical set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusProcessing, StatusPartial,
		StatusCompleted, StatusCanceled, StatusRefunds:
		return true
	}
	return false
}

// Active reports whether the order is still being fulfilled.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusProcessing
}

// Terminal reports whether the provider will not move the order any further.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusRefunds || s == StatusPartial
}

// Provider identifies an upstream SMM panel.
type Provider string

const (
	ProviderSMMGen     Provider = "smmgen"
	ProviderSMMCost    Provider = "smmcost"
	ProviderJBSMMPanel Provider = "jbsmmpanel"
)

// Providers lists providers in the order an order's id fields are inspected.
var Providers = []Provider{ProviderSMMGen, ProviderSMMCost, ProviderJBSMMPanel}

// commonStatuses is the Perfect Panel vocabulary all three panels share.
var commonStatuses = map[string]Status{
	"pending":     StatusPending,
	"in progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"processing":  StatusProcessing,
	"partial":     StatusPartial,
	"completed":   StatusCompleted,
	"complete":    StatusCompleted,
	"canceled":    StatusCanceled,
	"cancelled":   StatusCanceled,
	"refunded":    StatusRefunds,
	"refunds":     StatusRefunds,
	"refund":      StatusRefunds,
}

// statusTables holds the exact-match vocabulary per provider.
var statusTables = map[Provider]map[string]Status{
	ProviderSMMGen: withExtra(commonStatuses, nil),
	ProviderSMMCost: withExtra(commonStatuses, map[string]Status{
		"success": StatusCompleted,
		"fail":    StatusCanceled,
		"failed":  StatusCanceled,
		"queued":  StatusPending,
	}),
	ProviderJBSMMPanel: withExtra(commonStatuses, map[string]Status{
		"0": StatusPending,
		"1": StatusInProgress,
		"2": StatusCompleted,
		"3": StatusPartial,
		"4": StatusCanceled,
		"5": StatusProcessing,
		"6": StatusRefunds,
	}),
}

// substringRules is the fallback when no exact match exists. Order matters:
// "refund" must win over "complete" for values like "refund completed".
var substringRules = []struct {
	needle string
	status Status
}{
	{"refund", StatusRefunds},
	{"cancel", StatusCanceled},
	{"partial", StatusPartial},
	{"complete", StatusCompleted},
	{"progress", StatusInProgress},
	{"processing", StatusProcessing},
	{"pending", StatusPending},
}

func withExtra(base, extra map[string]Status) map[string]Status {
	out := make(map[string]Status, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseStatus accepts only the shared Perfect Panel vocabulary, for input
// typed by an operator rather than reported by a panel.
func ParseStatus(raw string) (Status, bool) {
	st, ok := commonStatuses[normalize(raw)]
	return st, ok
}

// MapStatus converts a provider status to the canonical set: exact lookup in
// the provider table, then substring rules, then StatusUnknown. Callers treat
// StatusUnknown as "leave the order as it is".
func MapStatus(p Provider, raw string) Status {
	s := normalize(raw)
	if s == "" {
		return StatusUnknown
	}

	table, ok := statusTables[p]
	if !ok {
		table = commonStatuses
	}
	if st, ok := table[s]; ok {
		return st
	}

	for _, rule := range substringRules {
		if strings.Contains(s, rule.needle) {
			return rule.status
		}
	}
	return StatusUnknown
}

func mapSMMGenStatus(raw string) Status     { return MapStatus(ProviderSMMGen, raw) }
func mapSMMCostStatus(raw string) Status    { return MapStatus(ProviderSMMCost, raw) }
func mapJBSMMPanelStatus(raw string) Status { return MapStatus(ProviderJBSMMPanel, raw) }
