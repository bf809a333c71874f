package middleware

import "github.com/go-chi/cors"

// CORS allows browser front-ends served from any origin.
var CORS = cors.Handler(cors.Options{
	AllowedOrigins:   []string{"*"},
	AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
	AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
	AllowCredentials: false,
	MaxAge:           300,
})
