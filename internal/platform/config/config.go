package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// LedgerPolicy holds the business-rule knobs of the ledger core.
type LedgerPolicy struct {
	// RetentionWindow bounds how old an entry may be and still be voided or
	// reversed, measured from posted_at (or created_at when never posted).
	RetentionWindow time.Duration
	// PeriodLookbackDays bounds how far in the past an entry date may lie and
	// still count as within the open accounting period.
	PeriodLookbackDays int
	// AllowNegativeBalances disables the non-negative check on balance sheet
	// accounts.
	AllowNegativeBalances bool
	// BalanceTolerance is the rounding tolerance for the balanced-entry check.
	BalanceTolerance decimal.Decimal
	// StrictDependents enables the coarse dependent-entries check blocking
	// void/reverse when later posted entries touch the same accounts.
	StrictDependents bool
}

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool
	JWTSecret    string
	RateLimit    string

	Ledger LedgerPolicy
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("LEDGER_RETENTION_WINDOW", "8760h")
	viper.SetDefault("LEDGER_PERIOD_LOOKBACK_DAYS", 365)
	viper.SetDefault("LEDGER_ALLOW_NEGATIVE_BALANCES", false)
	viper.SetDefault("LEDGER_BALANCE_TOLERANCE", "0.01")
	viper.SetDefault("LEDGER_STRICT_DEPENDENTS", false)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	retentionStr := viper.GetString("LEDGER_RETENTION_WINDOW")
	retention, err := time.ParseDuration(retentionStr)
	if err != nil {
		retention = 8760 * time.Hour // 1 year
		log.Printf("Warning: Invalid value for LEDGER_RETENTION_WINDOW ('%s'). Defaulting to %s.\n", retentionStr, retention.String())
	}

	toleranceStr := viper.GetString("LEDGER_BALANCE_TOLERANCE")
	tolerance, err := decimal.NewFromString(toleranceStr)
	if err != nil || tolerance.IsNegative() {
		tolerance = decimal.RequireFromString("0.01")
		log.Printf("Warning: Invalid value for LEDGER_BALANCE_TOLERANCE ('%s'). Defaulting to %s.\n", toleranceStr, tolerance.String())
	}

	cfg.Ledger = LedgerPolicy{
		RetentionWindow:       retention,
		PeriodLookbackDays:    viper.GetInt("LEDGER_PERIOD_LOOKBACK_DAYS"),
		AllowNegativeBalances: viper.GetBool("LEDGER_ALLOW_NEGATIVE_BALANCES"),
		BalanceTolerance:      tolerance,
		StrictDependents:      viper.GetBool("LEDGER_STRICT_DEPENDENTS"),
	}

	return cfg, nil
}

// DefaultLedgerPolicy returns the policy used when no configuration is loaded,
// matching the documented defaults.
func DefaultLedgerPolicy() LedgerPolicy {
	return LedgerPolicy{
		RetentionWindow:       8760 * time.Hour,
		PeriodLookbackDays:    365,
		AllowNegativeBalances: false,
		BalanceTolerance:      decimal.RequireFromString("0.01"),
		StrictDependents:      false,
	}
}
