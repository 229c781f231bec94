package throttle

import (
	"net/http"
	"time"

	"throttle-gateway/middleware/throttle/application"
	"throttle-gateway/middleware/throttle/domain"
)

type Options struct {
	Registry           domain.Registry
	Stats              domain.StatsStore
	RouteKeyFn         RouteKeyFunc
	RejectStatus       int
	RetryAfter         time.Duration
	AddThrottleHeaders bool
}

type rateInfo interface {
	Rate() float64
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.RouteKeyFn == nil {
		opts.RouteKeyFn = DefaultRouteKeyFunc()
	}

	svc := application.Service{
		Registry:   opts.Registry,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.RouteKeyFn(r)

			dec := svc.Admit(domain.Key(key))

			if opts.AddThrottleHeaders {
				w.Header().Set("X-Throttle-Route", key)
				if opts.Registry != nil {
					if ri, ok := opts.Registry.Resolve(domain.Key(key)).(rateInfo); ok {
						w.Header().Set("X-Throttle-RPS", formatFloat(ri.Rate()))
					}
				}
			}

			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Route:   domain.Key(key),
					Allowed: dec.Allowed,
					Method:  r.Method,
					At:      time.Now(),
				})
			}

			if !dec.Allowed {
				w.Header().Set("Retry-After", formatInt(int(dec.RetryAfter.Seconds())))
				http.Error(w, domain.ErrRequestThrottled.Error(), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
