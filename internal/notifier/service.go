package notifier

import (
	"context"
	"fmt"
	"log"

	kafkax "github.com/edulibros/backoffice/internal/kafka"
	"github.com/edulibros/backoffice/internal/orders"
	"github.com/edulibros/backoffice/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
	ItemsForOrder(ctx context.Context, orderID string) ([]orders.OrderItem, error)
}

// Service mengkonsumsi event receipt dan mendorongnya ke collaborator
// struk/email. Kontraknya at-least-once dan fire-and-forget: struk dobel
// ditoleransi, gagal kirim dicatat tapi tidak pernah bikin event di-retry
// tanpa henti ataupun balik menyentuh jalur ledger.
type Service struct {
	Orders      OrderReader
	Redis       *redis.Client
	Receipts    Sender
	ServiceName string
}

// HandleReceiptRequested: dipasang sebagai handler consumer.
func (s *Service) HandleReceiptRequested(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventReceiptRequested {
		return nil
	} // ignore

	// dedup best-effort via Redis (pakai event_id); duplikat yang lolos tetap aman
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if sudah, _ := s.sudahDiproses(ctx, dkey); sudah {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.ReceiptRequestedPayload](env.Payload)
	if err != nil {
		return err
	}

	// gagal baca store -> return err, offset tidak di-commit, coba lagi
	o, err := s.Orders.GetOrder(ctx, p.OrderID)
	if err != nil {
		return err
	}
	items, err := s.Orders.ItemsForOrder(ctx, p.OrderID)
	if err != nil {
		return err
	}

	rc := Receipt{
		OrderID:    o.ID,
		BuyerID:    o.BuyerID,
		PaymentRef: p.PaymentRef,
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
	}
	for _, it := range items {
		rc.Lines = append(rc.Lines, ReceiptLine{
			Code:       it.CodeSnap,
			Name:       it.NameSnap,
			Qty:        it.Qty,
			PriceCents: it.PriceCents,
			TotalCents: it.TotalCents,
		})
	}

	// collaborator gagal: dicatat, event tetap dianggap selesai
	if err := s.Receipts.Send(ctx, rc); err != nil {
		log.Printf("notifier: send receipt order=%s: %v", o.ID, err)
	}
	return nil
}

func (s *Service) sudahDiproses(ctx context.Context, key string) (bool, error) {
	if s.Redis == nil {
		return false, nil
	}
	first, err := redisx.SetNX(ctx, s.Redis, key, redisx.TTLDedup)
	if err != nil {
		// redis down bukan alasan menahan struk; duplikat memang ditoleransi
		return false, err
	}
	return !first, nil
}
