package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// Local back-office dev server plus the deployed finance front ends.
var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"https://keuangan.drsis.sch.id",
	"https://staging.keuangan.drsis.sch.id",
}

// CORS returns middleware that applies the API's allowed origin policy.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   defaultCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
