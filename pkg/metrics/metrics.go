package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PostsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "blog", Name: "posts_created_total", Help: "Number of posts created."},
	)
	PostValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "blog", Name: "post_validation_failures_total", Help: "Rejected post submissions by field."},
		[]string{"field"},
	)
	UnauthorizedPostAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "blog", Name: "unauthorized_post_attempts_total", Help: "Anonymous post submissions rejected with 401."},
	)
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "blog", Name: "logins_total", Help: "Login attempts by result."},
		[]string{"result"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "blog", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "blog", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(
		PostsCreated,
		PostValidationFailures,
		UnauthorizedPostAttempts,
		Logins,
		RateLimitAllowed,
		RateLimitRejected,
	)
}
