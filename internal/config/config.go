package config

import (
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ServerConfig is a struct that contains configuration values for the server.
type ServerConfig struct {
	// AllowedOrigins is a list of URLs that the server will accept requests from.
	AllowedOrigins []string
	// Port is the port the server should run on.
	Port int

	// TokenSecret signs and verifies bearer tokens.
	TokenSecret string
	// TokenExpiration is the lifetime of a bearer token issued by POST /jwt.
	TokenExpiration time.Duration

	// StoreDriver selects the document store: firestore, mongo, bolt or memory.
	StoreDriver string
	// StoreTimeout bounds every individual store call.
	StoreTimeout             time.Duration
	FirestoreCredentialsFile string
	FirestoreProjectID       string
	MongoURI                 string
	MongoDatabase            string
	BoltPath                 string

	// PaymentServerKey is the payment provider's server key. Without it payment intents are refused.
	PaymentServerKey  string
	PaymentProduction bool
}

func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		AllowedOrigins:           []string{"http://localhost:5173", "http://localhost:3000"},
		Port:                     5000,
		TokenExpiration:          24 * time.Hour,
		StoreDriver:              "memory",
		StoreTimeout:             10 * time.Second,
		FirestoreCredentialsFile: "firebase-config.json",
		MongoDatabase:            "classMasterDB",
		BoltPath:                 "classmaster.db",
	}
}

// environment variable for each setting
var envKeys = map[string]string{
	"port":                     "PORT",
	"allowedOrigins":           "ALLOWED_ORIGINS",
	"tokenSecret":              "ACCESS_TOKEN_SECRET",
	"tokenExpiration":          "TOKEN_EXPIRATION",
	"storeDriver":              "STORE_DRIVER",
	"storeTimeout":             "STORE_TIMEOUT",
	"firestoreCredentialsFile": "FIRESTORE_CREDENTIALS_FILE",
	"firestoreProjectID":       "FIRESTORE_PROJECT_ID",
	"mongoURI":                 "MONGO_URI",
	"mongoDatabase":            "MONGO_DATABASE",
	"boltPath":                 "BOLT_PATH",
	"paymentServerKey":         "PAYMENT_SERVER_KEY",
	"paymentProduction":        "PAYMENT_PRODUCTION",
}

// Load builds the configuration from the defaults, an optional .env file and the environment, in
// increasing order of precedence. A missing .env file is ignored.
func Load(dotEnvPath string) (*ServerConfig, error) {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "reading %s", dotEnvPath)
		}
	}

	defaults := DefaultConfig()
	v := viper.New()
	v.SetDefault("port", defaults.Port)
	v.SetDefault("allowedOrigins", strings.Join(defaults.AllowedOrigins, ","))
	v.SetDefault("tokenExpiration", defaults.TokenExpiration)
	v.SetDefault("storeDriver", defaults.StoreDriver)
	v.SetDefault("storeTimeout", defaults.StoreTimeout)
	v.SetDefault("firestoreCredentialsFile", defaults.FirestoreCredentialsFile)
	v.SetDefault("mongoDatabase", defaults.MongoDatabase)
	v.SetDefault("boltPath", defaults.BoltPath)
	v.SetDefault("paymentProduction", false)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "binding %s", env)
		}
	}

	cfg := &ServerConfig{
		AllowedOrigins:           splitList(v.GetString("allowedOrigins")),
		Port:                     v.GetInt("port"),
		TokenSecret:              v.GetString("tokenSecret"),
		TokenExpiration:          v.GetDuration("tokenExpiration"),
		StoreDriver:              strings.ToLower(v.GetString("storeDriver")),
		StoreTimeout:             v.GetDuration("storeTimeout"),
		FirestoreCredentialsFile: v.GetString("firestoreCredentialsFile"),
		FirestoreProjectID:       v.GetString("firestoreProjectID"),
		MongoURI:                 v.GetString("mongoURI"),
		MongoDatabase:            v.GetString("mongoDatabase"),
		BoltPath:                 v.GetString("boltPath"),
		PaymentServerKey:         v.GetString("paymentServerKey"),
		PaymentProduction:        v.GetBool("paymentProduction"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PaymentServerKey == "" {
		glog.Warningln("PAYMENT_SERVER_KEY is not set; payment intents will be refused")
	}

	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c *ServerConfig) Validate() error {
	if c.TokenSecret == "" {
		return errors.New("ACCESS_TOKEN_SECRET is required")
	}
	if c.TokenExpiration <= 0 {
		return errors.New("TOKEN_EXPIRATION must be positive")
	}
	if c.Port <= 0 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	switch c.StoreDriver {
	case "firestore", "mongo", "bolt", "memory":
	default:
		return errors.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
