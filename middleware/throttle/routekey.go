package throttle

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RouteKeyFunc resolve a chave lógica da rota de uma requisição.
// A chave precisa ser estável entre requisições ao mesmo endpoint: ela é a
// partição do rate limit, então "uma chave por URL" estouraria a
// cardinalidade do registry.
type RouteKeyFunc func(r *http.Request) string

// DefaultRouteKeyFunc usa o pattern de rota do chi quando a requisição já
// passou pelo roteamento (ex: "/api/users/{id}", estável mesmo com path
// params), senão o path da URL normalizado.
//
// Nota: montado via chi Router.With/Route o middleware roda depois do match
// e enxerga o pattern; montado antes do router (ex: em volta de um reverse
// proxy) só o path está disponível.
func DefaultRouteKeyFunc() RouteKeyFunc {
	return func(r *http.Request) string {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pat := rctx.RoutePattern(); pat != "" {
				return pat
			}
		}

		if p := strings.TrimSpace(r.URL.Path); p != "" {
			return path.Clean(p)
		}
		return "/"
	}
}
