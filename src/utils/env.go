package utils

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const envFilename = ".env"

// InitEnvironmentVariables loads the local .env file when one exists.
// Production deployments configure through real environment variables, so a
// missing file is not an error.
func InitEnvironmentVariables() error {
	if os.Getenv("GO_ENV") == "production" {
		log.Info("running in production environment")
		return nil
	}

	if _, err := os.Stat(envFilename); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(envFilename); err != nil {
		log.Warnf("failed to load %s: %v", envFilename, err)
	}

	return nil
}
