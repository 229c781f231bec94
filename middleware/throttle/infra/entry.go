package infra

import (
	"sync/atomic"
	"time"
)

// graceWindow é o período, após criar ou reconfigurar o bucket de uma rota,
// em que toda requisição passa sem consultar o bucket.
//
// Um bucket recém-criado ainda não acumulou crédito; uma rajada legítima de
// requisições concorrentes logo após um restart (ou logo após trocar o
// threshold) seria rejeitada à toa sem essa janela.
const graceWindow = 1000 * time.Millisecond

// Entry emparelha o bucket de uma rota com o instante de criação/reset, que
// arma a janela de graça e detecta troca de rate.
//
// O Entry pertence exclusivamente ao Registry e é reconfigurado in place
// (nunca substituído): o crédito pendente do bucket e o timestamp da graça
// andam juntos como uma unidade só. Requisições apenas emprestam a
// referência durante a checagem. Entries vivem até o fim do processo.
type Entry struct {
	bucket *bucket

	// unix millis da criação ou da última troca de rate.
	// Lido fora do lock do shard em Allow, por isso atômico.
	resetAt atomic.Int64
}

func newEntry(rps float64, now time.Time) *Entry {
	e := &Entry{bucket: newBucket(rps)}
	e.resetAt.Store(now.UnixMilli())
	return e
}

func (e *Entry) rateEquals(rps float64) bool { return e.bucket.RateEquals(rps) }

// updateRate aplica o novo rate ao mesmo bucket e rearma a janela de graça:
// uma troca de threshold é tratada como um começo do zero para fins de burst,
// inclusive quando o novo limite é menor que o antigo.
func (e *Entry) updateRate(rps float64, now time.Time) {
	e.bucket.SetRate(rps)
	e.resetAt.Store(now.UnixMilli())
}

// Rate expõe o rate vigente (req/s) para headers informativos.
func (e *Entry) Rate() float64 { return e.bucket.Rate() }

// Allow implementa domain.Limiter: dentro da janela de graça aceita
// incondicionalmente; fora dela, delega ao bucket.
func (e *Entry) Allow() bool {
	if time.Now().UnixMilli()-e.resetAt.Load() <= graceWindow.Milliseconds() {
		return true
	}
	return e.bucket.Allow()
}
