package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean. Optional backends (postgres, redis, kafka) default to the
// in-memory wiring when unset.
type Config struct {
	Addr string

	// PostgresDSN enables the postgres-backed stores when non-empty.
	PostgresDSN string

	// RedisURL enables the redis-backed session and challenge stores when
	// non-empty.
	RedisURL string

	// KafkaBrokers enables the kafka audit publisher when non-empty.
	KafkaBrokers []string
	// KafkaAuditTopic is the topic audit events are produced to.
	KafkaAuditTopic string

	// SessionTTL bounds wallet unlock sessions. Expiry relocks the wallet
	// with no manual intervention.
	SessionTTL time.Duration

	// MinPassphraseLength is enforced by the key derivation step.
	MinPassphraseLength int

	// WebDIDDomain anchors did:web identifiers, e.g. "wallets.example.edu".
	WebDIDDomain string

	// EthrResolverURL configures the delegated did:ethr resolver. Resolution
	// of did:ethr fails as unavailable when unset.
	EthrResolverURL string

	// ChallengeTTL bounds how long a generated presentation challenge stays
	// acceptable before verification.
	ChallengeTTL time.Duration

	// DiscloseRevocationReasons controls whether verifiers see the stored
	// revocation reason or only a generic "revoked" outcome.
	DiscloseRevocationReasons bool

	// TrustedIssuers is the default issuer allow-list for verifications that
	// do not supply their own. Empty means any issuer is accepted.
	TrustedIssuers []string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:                      envOr("CUSTODIA_ADDR", ":8080"),
		PostgresDSN:               os.Getenv("CUSTODIA_POSTGRES_DSN"),
		RedisURL:                  os.Getenv("CUSTODIA_REDIS_URL"),
		KafkaAuditTopic:           envOr("CUSTODIA_KAFKA_AUDIT_TOPIC", "custodia.audit"),
		SessionTTL:                envDurationOr("CUSTODIA_SESSION_TTL", 15*time.Minute),
		MinPassphraseLength:       envIntOr("CUSTODIA_MIN_PASSPHRASE_LENGTH", 12),
		WebDIDDomain:              envOr("CUSTODIA_WEB_DID_DOMAIN", "wallets.example.edu"),
		EthrResolverURL:           os.Getenv("CUSTODIA_ETHR_RESOLVER_URL"),
		ChallengeTTL:              envDurationOr("CUSTODIA_CHALLENGE_TTL", 10*time.Minute),
		DiscloseRevocationReasons: os.Getenv("CUSTODIA_DISCLOSE_REVOCATION_REASONS") == "true",
	}
	cfg.KafkaBrokers = splitList(os.Getenv("CUSTODIA_KAFKA_BROKERS"))
	cfg.TrustedIssuers = splitList(os.Getenv("CUSTODIA_TRUSTED_ISSUERS"))
	return cfg
}

// splitList parses a comma-separated list, trimming each element and
// dropping empties and repeats. It keeps the nil/empty distinction: an unset
// variable stays nil so downstream "not configured" checks work.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, v := range strings.Split(raw, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
