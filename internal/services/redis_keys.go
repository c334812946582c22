package services

import "time"

const (
	KeySessionInfo     = "session:%s:info"
	KeySessionKey      = "session:%s:account_key"
	KeySessionContract = "session:%s:contract_address"
	KeySessionHistory  = "session:%s:history"
	KeyRateLimit       = "ratelimit:%s:%s"

	TTLSession = 30 * 24 * time.Hour // 30 days

	DefaultRateLimitPleas = 10 // Max 10 pleas per minute
	RateLimitWindow       = time.Minute
)
