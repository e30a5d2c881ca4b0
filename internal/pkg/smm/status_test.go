package smm

import "testing"

func TestMapSMMGenStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"In Progress", StatusInProgress},
		{"in-progress-ish", StatusInProgress},
		{"in_progress", StatusInProgress},
		{"", StatusUnknown},
		{"   ", StatusUnknown},
		{"Completed", StatusCompleted},
		{"Partial", StatusPartial},
		{"Canceled", StatusCanceled},
		{"Cancelled", StatusCanceled},
		{"Refunded", StatusRefunds},
		{"Processing", StatusProcessing},
		{"Pending", StatusPending},
		{"order completed successfully", StatusCompleted},
		{"refund completed", StatusRefunds},
		{"awaiting moderation", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := mapSMMGenStatus(tt.in); got != tt.want {
				t.Fatalf("mapSMMGenStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMapSMMCostStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"Success", StatusCompleted},
		{"Fail", StatusCanceled},
		{"Queued", StatusPending},
		{"In progress", StatusInProgress},
	}
	for _, tt := range tests {
		if got := mapSMMCostStatus(tt.in); got != tt.want {
			t.Errorf("mapSMMCostStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := mapSMMGenStatus("Success"); got != StatusUnknown {
		t.Errorf("smmgen must not know the smmcost vocabulary, got %q", got)
	}
}

func TestMapJBSMMPanelStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"2", StatusCompleted},
		{"4", StatusCanceled},
		{"0", StatusPending},
		{"Completed", StatusCompleted},
		{"99", StatusUnknown},
	}
	for _, tt := range tests {
		if got := mapJBSMMPanelStatus(tt.in); got != tt.want {
			t.Errorf("mapJBSMMPanelStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusInProgress.Active() || StatusCompleted.Active() {
		t.Fatal("unexpected Active result")
	}
	if !StatusRefunds.Terminal() || StatusPending.Terminal() {
		t.Fatal("unexpected Terminal result")
	}
	if StatusUnknown.Valid() || !StatusPartial.Valid() {
		t.Fatal("unexpected Valid result")
	}
}

func TestAggregateCombo(t *testing.T) {
	tests := []struct {
		name   string
		in     []Status
		want   Status
		wantOK bool
	}{
		{"all completed", []Status{StatusCompleted, StatusCompleted}, StatusCompleted, true},
		{"one processing", []Status{StatusCompleted, StatusProcessing}, StatusProcessing, true},
		{"pending counts as active", []Status{StatusPending, StatusCanceled}, StatusProcessing, true},
		{"all canceled", []Status{StatusCanceled, StatusCanceled}, StatusPartial, true},
		{"canceled and completed", []Status{StatusCanceled, StatusCompleted}, StatusPartial, true},
		{"refunded and completed", []Status{StatusRefunds, StatusCompleted}, StatusPartial, true},
		{"partial and completed", []Status{StatusPartial, StatusCompleted}, StatusPartial, true},
		{"unknown component", []Status{StatusCompleted, StatusUnknown}, StatusUnknown, false},
		{"empty", nil, StatusUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AggregateCombo(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("AggregateCombo(%v) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
