package orders

import "fmt"

// Tabel orders historis menyimpan status dalam dua kosakata: set canonical
// (English) dan set legacy (Spanish). Dialek dipilih sekali lewat konfigurasi
// dan diterapkan deterministik di boundary persistence — tidak pernah
// ditebak-tebak dengan menangkap error write.

type Vocab string

const (
	VocabEN Vocab = "en"
	VocabES Vocab = "es"
)

// Tabel translasi v1. Kalau schema legacy nambah nilai, naikkan versi dan
// tambahkan barisnya di sini.
const vocabVersion = 1

var enToES = map[Status]string{
	StatusPaymentPending: "PENDIENTE_PAGO",
	StatusPaid:           "PAGADO",
	StatusPreparing:      "PREPARACION",
	StatusShipped:        "ENVIADO",
	StatusDelivered:      "ENTREGADO",
	StatusCancelled:      "CANCELADO",
	StatusFailed:         "FALLIDO",
	StatusRefund:         "REEMBOLSO",
}

var esToEN = func() map[string]Status {
	m := make(map[string]Status, len(enToES))
	for en, es := range enToES {
		m[es] = en
	}
	return m
}()

func ParseVocab(s string) (Vocab, error) {
	switch Vocab(s) {
	case VocabEN, VocabES:
		return Vocab(s), nil
	}
	return "", fmt.Errorf("unknown order status vocab %q (want en|es, table v%d)", s, vocabVersion)
}

// Encode: canonical -> nilai yang ditulis ke kolom status.
func (v Vocab) Encode(s Status) string {
	if v == VocabES {
		if es, ok := enToES[s]; ok {
			return es
		}
	}
	return string(s)
}

// Decode menerima kedua dialek plus nilai pra-normalisasi lama
// (CREATED/PENDING), apapun dialek tulisnya.
func (v Vocab) Decode(raw string) Status {
	if en, ok := esToEN[raw]; ok {
		return en
	}
	return Status(raw)
}
