package domain

import "errors"

// ErrRequestThrottled sinaliza que a requisição excedeu o limite da rota.
//
// É uma condição esperada sob carga, não uma falha do sistema: quem chama
// identifica com errors.Is e traduz para a resposta adequada (ex: 429).
// Nenhum outro erro nasce no core; falha na fonte de thresholds degrada
// para o default em vez de falhar a requisição.
var ErrRequestThrottled = errors.New("request throttled")
