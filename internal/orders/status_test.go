package orders

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to Status }{
		{StatusPaymentPending, StatusPaid},
		{StatusPaymentPending, StatusFailed},
		{StatusPaymentPending, StatusCancelled},
		{StatusPaid, StatusPreparing},
		{StatusPaid, StatusRefund},
		{StatusPreparing, StatusShipped},
		{StatusShipped, StatusDelivered},
	}
	for _, c := range allowed {
		if !CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s allowed", c.from, c.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusPaymentPending, StatusShipped}, // fulfillment tidak bisa lompat
		{StatusDelivered, StatusPaid},
		{StatusFailed, StatusPaid},
		{StatusCancelled, StatusPaymentPending},
		{StatusShipped, StatusPreparing}, // tidak mundur
	}
	for _, c := range denied {
		if CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s denied", c.from, c.to)
		}
	}
}

func TestPendingLike(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusPaymentPending, "CREATED", "PENDING"} {
		if !s.PendingLike() {
			t.Errorf("%s should be pending-like", s)
		}
	}
	for _, s := range []Status{StatusPaid, StatusDelivered, StatusFailed, StatusRefund} {
		if s.PendingLike() {
			t.Errorf("%s should not be pending-like", s)
		}
	}
}

func TestVocabEncodeDecode(t *testing.T) {
	t.Parallel()

	all := []Status{
		StatusPaymentPending, StatusPaid, StatusPreparing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusFailed, StatusRefund,
	}

	t.Run("en", func(t *testing.T) {
		for _, s := range all {
			if enc := VocabEN.Encode(s); enc != string(s) {
				t.Errorf("EN encode %s = %s", s, enc)
			}
		}
	})

	t.Run("es", func(t *testing.T) {
		want := map[Status]string{
			StatusPaymentPending: "PENDIENTE_PAGO",
			StatusPaid:           "PAGADO",
			StatusPreparing:      "PREPARACION",
			StatusShipped:        "ENVIADO",
			StatusDelivered:      "ENTREGADO",
			StatusCancelled:      "CANCELADO",
			StatusFailed:         "FALLIDO",
			StatusRefund:         "REEMBOLSO",
		}
		for s, es := range want {
			if enc := VocabES.Encode(s); enc != es {
				t.Errorf("ES encode %s = %s, want %s", s, enc, es)
			}
		}
	})

	t.Run("decode accepts both dialects", func(t *testing.T) {
		for _, v := range []Vocab{VocabEN, VocabES} {
			for _, s := range all {
				if dec := v.Decode(v.Encode(s)); dec != s {
					t.Errorf("%s decode(encode(%s)) = %s", v, s, dec)
				}
				// baris lama bisa tersimpan dalam dialek lain dari config aktif
				other := VocabES
				if v == VocabES {
					other = VocabEN
				}
				if dec := v.Decode(other.Encode(s)); dec != s {
					t.Errorf("%s decode cross-dialect %s = %s", v, s, dec)
				}
			}
		}
	})
}

func TestParseVocab(t *testing.T) {
	t.Parallel()

	if _, err := ParseVocab("en"); err != nil {
		t.Fatalf("en: %v", err)
	}
	if _, err := ParseVocab("es"); err != nil {
		t.Fatalf("es: %v", err)
	}
	if _, err := ParseVocab("fr"); err == nil {
		t.Fatal("expected error for unknown vocab")
	}
}
