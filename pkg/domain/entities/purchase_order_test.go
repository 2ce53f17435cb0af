package entities

import "testing"

func TestPurchaseLine_FinalAndOutstanding(t *testing.T) {
	line := PurchaseLine{QtyOrdered: 10, QtyAdjusted: -2, QtyReceived: 5}

	if got := line.Final(); got != 8 {
		t.Errorf("Expected final 8, got %g", got)
	}
	if got := line.Outstanding(); got != 3 {
		t.Errorf("Expected outstanding 3, got %g", got)
	}

	over := PurchaseLine{QtyOrdered: 5, QtyReceived: 6}
	if got := over.Outstanding(); got != 0 {
		t.Errorf("Outstanding must not go negative, got %g", got)
	}
}

func TestPurchaseOrder_RecomputeStatus(t *testing.T) {
	testCases := []struct {
		name     string
		lines    []PurchaseLine
		expected PurchaseStatus
	}{
		{
			"no progress stays open",
			[]PurchaseLine{{QtyOrdered: 10}, {QtyOrdered: 5}},
			PurchaseOpen,
		},
		{
			"some progress is partial",
			[]PurchaseLine{{QtyOrdered: 10, QtyReceived: 10}, {QtyOrdered: 5, QtyReceived: 2}},
			PurchasePartial,
		},
		{
			"under-received line keeps order partial",
			[]PurchaseLine{{QtyOrdered: 10, QtyReceived: 9.5}},
			PurchasePartial,
		},
		{
			"all lines done is received",
			[]PurchaseLine{{QtyOrdered: 10, QtyReceived: 10}, {QtyOrdered: 5, QtyAdjusted: -1, QtyReceived: 4}},
			PurchaseReceived,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			order := &PurchaseOrder{Status: PurchaseOpen, Lines: tc.lines}
			order.RecomputeStatus()
			if order.Status != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, order.Status)
			}
		})
	}
}

func TestPurchaseOrder_RecomputeStatus_LeavesTerminalStates(t *testing.T) {
	order := &PurchaseOrder{
		Status: PurchaseCancelled,
		Lines:  []PurchaseLine{{QtyOrdered: 10, QtyReceived: 10}},
	}
	order.RecomputeStatus()
	if order.Status != PurchaseCancelled {
		t.Errorf("Cancelled order must stay cancelled, got %s", order.Status)
	}
}

func TestNormalizePurchaseStatus(t *testing.T) {
	got, err := NormalizePurchaseStatus("HOLD")
	if err != nil {
		t.Fatalf("Failed to normalize HOLD: %v", err)
	}
	if got != PurchaseOpen {
		t.Errorf("Expected HOLD to normalize to OPEN, got %s", got)
	}

	if _, err := NormalizePurchaseStatus("SENT"); err == nil {
		t.Error("Expected error for unknown status")
	}
}
