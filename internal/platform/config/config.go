package config

import (
	"os"
	"strings"
)

// Config captures everything the server needs, read once at startup. No
// package reads the environment after this point; collaborators get their
// settings injected through constructors.
type Config struct {
	Addr string

	// DatabaseURL selects the Postgres store; empty means the in-memory
	// store (dev mode).
	DatabaseURL string

	// RedisURL enables the verification cache when set.
	RedisURL string

	// KafkaBrokers enables the Kafka audit sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// JWTSigningKey, when set, puts bearer auth on all mutating routes.
	JWTSigningKey string

	// Chain settings. IssuerKey empty means no chain backend: issuance and
	// verification work, minting reports the chain as unavailable.
	SolanaRPCURL  string
	IssuerKey     string
	IssuerAddress string
	TokenSymbol   string
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:          getenv("ATTEST_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaTopic:    getenv("AUDIT_KAFKA_TOPIC", "attest.audit"),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		SolanaRPCURL:  os.Getenv("SOLANA_RPC_URL"),
		IssuerKey:     os.Getenv("ISSUER_PRIVATE_KEY"),
		IssuerAddress: os.Getenv("ISSUER_ADDRESS"),
		TokenSymbol:   getenv("TOKEN_SYMBOL", "CERT"),
	}
	if brokers := os.Getenv("AUDIT_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
