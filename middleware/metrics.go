package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rango_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rango_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// PageViewsTotal counts redirects through the page view tracker.
	PageViewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rango_page_views_total",
		Help: "Page views recorded by the goto redirect.",
	})

	// CategoryLikesTotal counts category likes.
	CategoryLikesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rango_category_likes_total",
		Help: "Likes added to categories.",
	})

	// VisitsTotal counts landing visits by outcome: counted or reset.
	VisitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rango_visits_total",
		Help: "Landing-page visits by tracker outcome.",
	}, []string{"outcome"})
)

// PrometheusMiddleware records request count and latency per route template.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		requestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
