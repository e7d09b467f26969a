// Loads and validates the .env files used internally by Candycast.

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/asaskevich/govalidator"
	"github.com/joho/godotenv"
)

// ServerConfig carries the validated server environment of Candycast.
type ServerConfig struct {
	Addr              string
	Port              string
	InitialCandyCount int
	CandyPerChild     int
}

// uses go package: godotenv to load up development enviroment variables
func LoadDevConfig() {
	err := godotenv.Load("config/dev.env")
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(-1)
	}
}

// LoadServerConfig reads and validates the server env vars loaded beforehand.
// Returns an error naming the first invalid var.
func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		Addr:          os.Getenv("SRV_ADDR"),
		Port:          os.Getenv("SRV_PORT"),
		CandyPerChild: 1,
	}

	if !govalidator.IsIP(cfg.Addr) {
		return cfg, fmt.Errorf("SRV_ADDR %q is not a valid IP address", cfg.Addr)
	}
	if !govalidator.IsPort(cfg.Port) {
		return cfg, fmt.Errorf("SRV_PORT %q is not a valid port", cfg.Port)
	}

	initial := os.Getenv("INITIAL_CANDY_COUNT")
	if !govalidator.IsNumeric(initial) {
		return cfg, fmt.Errorf("INITIAL_CANDY_COUNT %q is not numeric", initial)
	}
	cfg.InitialCandyCount, _ = strconv.Atoi(initial)
	if cfg.InitialCandyCount <= 0 {
		return cfg, fmt.Errorf("INITIAL_CANDY_COUNT must be positive, got %d", cfg.InitialCandyCount)
	}

	if perChild := os.Getenv("CANDY_PER_CHILD"); perChild != "" {
		if !govalidator.IsNumeric(perChild) {
			return cfg, fmt.Errorf("CANDY_PER_CHILD %q is not numeric", perChild)
		}
		cfg.CandyPerChild, _ = strconv.Atoi(perChild)
		if cfg.CandyPerChild <= 0 {
			return cfg, fmt.Errorf("CANDY_PER_CHILD must be positive, got %d", cfg.CandyPerChild)
		}
	}

	return cfg, nil
}
