package config // loads application configuration from environment variables

import (
    "log"     // reports configuration errors and halts execution
    "os"      // access to environment variables
    "strconv" // string conversions
    "time"    // sweep interval parsing

    "github.com/joho/godotenv" // loads .env files in development
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. The types reflect how the
// values are used in the application: strings for identifiers and
// secrets, ints and durations for costs and intervals.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    DBUser         string        // database username
    DBPass         string        // database password (optional)
    DBHost         string        // database host address
    DBPort         string        // database port number
    DBName         string        // database name
    JWTSecret      string        // secret used to sign JWTs
    AccessTTLMin   int           // access token time-to-live in minutes
    RefreshTTLDays int           // refresh token time-to-live in days
    BcryptCost     int           // bcrypt cost for password hashing
    SweepInterval  time.Duration // pickup-status sweeper interval
    SweepBatchSize int           // listings processed per sweeper batch
}

// Load reads configuration values from environment variables and
// returns a Config. A .env file is loaded first when present so
// development setups need no exported environment. Required
// variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
    _ = godotenv.Load() // absent .env is fine in production
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),
        SweepInterval:  envDuration("SWEEP_INTERVAL", 5*time.Minute),
        SweepBatchSize: envIntDefault("SWEEP_BATCH_SIZE", 200),
    }
}

// must retrieves the value of a required environment variable. If
// the variable is unset or empty, the application logs a fatal error
// and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an
// integer. If conversion fails, the application logs a fatal error
// and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// envDuration reads an optional duration variable, falling back to
// def when unset or malformed.
func envDuration(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    d, err := time.ParseDuration(v)
    if err != nil || d <= 0 {
        return def
    }
    return d
}

// envIntDefault reads an optional integer variable, falling back to
// def when unset or malformed.
func envIntDefault(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil || n <= 0 {
        return def
    }
    return n
}
