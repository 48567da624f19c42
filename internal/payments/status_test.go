package payments

import (
	"testing"

	"github.com/edulibros/backoffice/internal/orders"
)

func TestFromProviderCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want Status
	}{
		{"approved", StatusApproved},
		{"APPROVED", StatusApproved},
		{" Approved ", StatusApproved},
		{"rejected", StatusRejected},
		{"cancelled", StatusCancelled},
		{"canceled", StatusCancelled},
		{"refunded", StatusRefunded},
		{"charged_back", StatusRefunded},
		{"pending", StatusPending},
		{"in_process", StatusPending},
		// kode tak dikenal jatuh ke PENDING, tidak pernah APPROVED
		{"in_mediation", StatusPending},
		{"authorized", StatusPending},
		{"", StatusPending},
		{"garbage-123", StatusPending},
	}
	for _, c := range cases {
		if got := FromProviderCode(c.raw); got != c.want {
			t.Errorf("FromProviderCode(%q) = %s, want %s", c.raw, got, c.want)
		}
	}
}

func TestFromProviderCodeDeterministic(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"approved", "in_mediation", "", "REFUNDED"} {
		a, b := FromProviderCode(raw), FromProviderCode(raw)
		if a != b {
			t.Fatalf("FromProviderCode(%q) not deterministic: %s vs %s", raw, a, b)
		}
	}
}

func TestOrderStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   Status
		want orders.Status
	}{
		{StatusApproved, orders.StatusPaid},
		{StatusRefunded, orders.StatusRefund},
		{StatusRejected, orders.StatusFailed},
		{StatusCancelled, orders.StatusCancelled},
		{StatusCreated, orders.StatusPaymentPending},
		{StatusPending, orders.StatusPaymentPending},
	}
	for _, c := range cases {
		if got := c.in.OrderStatus(); got != c.want {
			t.Errorf("%s.OrderStatus() = %s, want %s", c.in, got, c.want)
		}
		// pemetaan pure: pemanggilan ulang hasilnya sama
		if again := c.in.OrderStatus(); again != c.want {
			t.Errorf("%s.OrderStatus() not stable: %s", c.in, again)
		}
	}
}

func TestCanAdvance(t *testing.T) {
	t.Parallel()

	if !CanAdvance(StatusPending, StatusApproved) {
		t.Error("PENDING -> APPROVED should advance")
	}
	if CanAdvance(StatusApproved, StatusPending) {
		t.Error("APPROVED -> PENDING is a regression and must not advance")
	}
	if !CanAdvance(StatusApproved, StatusRefunded) {
		t.Error("APPROVED -> REFUNDED should advance")
	}
	if CanAdvance(StatusRefunded, StatusApproved) {
		t.Error("REFUNDED is final")
	}
	if !CanAdvance(StatusRejected, StatusApproved) {
		t.Error("REJECTED -> APPROVED (pembeli coba bayar lagi) should advance")
	}

	for _, s := range []Status{StatusCancelled, StatusRefunded} {
		if !s.Final() {
			t.Errorf("%s should be final", s)
		}
	}
	if StatusPending.Final() {
		t.Error("PENDING is not final")
	}
}
