package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type EngineConfig struct {
	RulesPath     string
	OverridesPath string
	PolicyPath    string
	DatabaseURL   string
	OutputDir     string

	StartDate time.Time
	Weeks     int

	SolveTimeLimit time.Duration
	SolveSeed      int64

	TelegramToken  string
	NotifierChatID int64
}

var instance *EngineConfig
var once sync.Once

// GetEngineConfig loads the configuration once from the environment. Only
// the rules file is mandatory; everything else has a sensible default.
func GetEngineConfig() *EngineConfig {
	once.Do(func() {
		instance = &EngineConfig{}

		if err := godotenv.Load(); err != nil {
			logrus.WithError(err).Debug("no .env file, using process environment")
		}

		instance.RulesPath = getEnv("ROTA_RULES_FILE", "")
		if instance.RulesPath == "" {
			logrus.Fatal("could not get rules file path")
		}

		instance.OverridesPath = getEnv("ROTA_OVERRIDES_FILE", "")
		instance.PolicyPath = getEnv("ROTA_POLICY_FILE", "")
		instance.DatabaseURL = getEnv("DATABASE_URL", "rota.db")
		instance.OutputDir = getEnv("ROTA_OUTPUT_DIR", ".")

		startStr := getEnv("ROTA_START_DATE", "")
		if startStr != "" {
			start, err := time.Parse("2006/01/02", startStr)
			if err != nil {
				logrus.Fatalf("could not parse start date %q: %s", startStr, err.Error())
			}
			instance.StartDate = start
		}

		instance.Weeks = int(getEnvAsInt("ROTA_WEEKS", 4))
		if instance.Weeks <= 0 {
			logrus.Fatal("weeks must be positive")
		}

		instance.SolveTimeLimit = time.Duration(getEnvAsInt("ROTA_TIME_LIMIT_SECONDS", 60)) * time.Second
		instance.SolveSeed = getEnvAsInt("ROTA_SOLVE_SEED", 0)

		instance.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
		instance.NotifierChatID = getEnvAsInt("ROTA_NOTIFY_CHAT_ID", 0)
		if instance.TelegramToken != "" && instance.NotifierChatID == 0 {
			logrus.Fatal("could not get notify chat id")
		}
	})

	return instance
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return int64(val)
	}

	return defaultVal
}
