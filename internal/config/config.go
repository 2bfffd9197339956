package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	StoreName          string
	DefaultVATRate     float64
	LoyaltyEarnRate    float64
	AllowNegativeStock bool
	ProductCacheTTLSec int
	AdminUsername      string
	AdminPassword      string
}

func Load() Config {
	// Missing .env is fine, the environment still wins.
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL, err := strconv.Atoi(getEnv("PRODUCT_CACHE_TTL_SECONDS", "60"))
	if err != nil || cacheTTL < 1 {
		cacheTTL = 60
	}
	vatRate, err := strconv.ParseFloat(getEnv("DEFAULT_VAT_RATE", "20"), 64)
	if err != nil || vatRate < 0 {
		vatRate = 20
	}
	earnRate, err := strconv.ParseFloat(getEnv("LOYALTY_EARN_RATE", "0.10"), 64)
	if err != nil || earnRate < 0 {
		earnRate = 0.10
	}
	allowNegative, err := strconv.ParseBool(getEnv("ALLOW_NEGATIVE_STOCK", "true"))
	if err != nil {
		allowNegative = true
	}

	return Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            redisDB,
		StoreName:          getEnv("STORE_NAME", "HSP Market"),
		DefaultVATRate:     vatRate,
		LoyaltyEarnRate:    earnRate,
		AllowNegativeStock: allowNegative,
		ProductCacheTTLSec: cacheTTL,
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
	}
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
