package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB           DBConfig
	Telegram     TelegramConfig
	Commission   CommissionDefaults
	Cancellation CancellationConfig
	Worker       WorkerConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token            string // notifier bot token; empty disables sending (worker logs instead)
	AccountingChatID int64  // chat that receives payout settlement notices
}

// CommissionDefaults is the platform-wide commission applied to merchants
// without an active commission config.
type CommissionDefaults struct {
	Type              string // "percentage" or "fixed"
	Percent           float64
	FixedValue        int64
	PayoutCadenceDays int
	IncludeDelivery   bool // delivery charges count toward the commission base
}

type CancellationConfig struct {
	DefaultPolicyCode string // code of the platform default cancellation policy
}

type WorkerConfig struct {
	PollInterval time.Duration
	MaxParallel  int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	cadence, _ := strconv.Atoi(getEnv("PAYOUT_CADENCE_DAYS", "7"))
	if cadence <= 0 {
		cadence = 7
	}

	accountingChat := int64(0)
	if v := os.Getenv("ACCOUNTING_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Printf("warning: invalid ACCOUNTING_CHAT_ID %q: %v", v, err)
		} else {
			accountingChat = id
		}
	}

	commissionPercent := 15.0
	if v := os.Getenv("COMMISSION_PERCENT"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p < 0 || p > 100 {
			log.Printf("warning: invalid COMMISSION_PERCENT %q, using default 15", v)
		} else {
			commissionPercent = p
		}
	}

	fixedValue, _ := strconv.ParseInt(getEnv("COMMISSION_FIXED_VALUE", "0"), 10, 64)

	pollSeconds, _ := strconv.Atoi(getEnv("WORKER_POLL_SECONDS", "15"))
	if pollSeconds <= 0 {
		pollSeconds = 15
	}
	maxParallel, _ := strconv.Atoi(getEnv("WORKER_MAX_PARALLEL", "4"))
	if maxParallel <= 0 {
		maxParallel = 4
	}

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "market"),
		},
		Telegram: TelegramConfig{
			Token:            getEnv("NOTIFY_TOKEN", ""),
			AccountingChatID: accountingChat,
		},
		Commission: CommissionDefaults{
			Type:              getEnv("COMMISSION_TYPE", "percentage"),
			Percent:           commissionPercent,
			FixedValue:        fixedValue,
			PayoutCadenceDays: cadence,
			IncludeDelivery:   getEnv("COMMISSION_INCLUDE_DELIVERY", "") == "1",
		},
		Cancellation: CancellationConfig{
			DefaultPolicyCode: getEnv("DEFAULT_CANCELLATION_POLICY", "standard"),
		},
		Worker: WorkerConfig{
			PollInterval: time.Duration(pollSeconds) * time.Second,
			MaxParallel:  maxParallel,
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
