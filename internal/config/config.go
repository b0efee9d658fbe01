package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for costs.
type Config struct {
	Env             string // application environment (e.g. "dev", "prod")
	Port            string // HTTP port to listen on
	DBUser          string // database username
	DBPass          string // database password (optional)
	DBHost          string // database host address
	DBPort          string // database port number
	DBName          string // database name
	TokenSecret     string // secret used to sign bearer tokens
	BcryptCost      int    // bcrypt cost for password and code hashing
	StorageRoot     string // root directory for private file storage
	RecaptchaSecret string // reCAPTCHA secret; empty disables the bot check
	SESRegion       string // AWS region for the SES mailer
	SESFromEmail    string // sender address; empty disables the mailer
	SESFromName     string // sender display name
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"), // empty allowed
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		TokenSecret:     must("TOKEN_SECRET"),
		BcryptCost:      mustInt("BCRYPT_COST"),
		StorageRoot:     envStr("STORAGE_ROOT", "storage"),
		RecaptchaSecret: os.Getenv("RECAPTCHA_SECRET"),
		SESRegion:       envStr("SES_REGION", "us-east-1"),
		SESFromEmail:    os.Getenv("SES_FROM_EMAIL"),
		SESFromName:     envStr("SES_FROM_NAME", "Inaanak Portal"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
