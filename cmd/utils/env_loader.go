package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	envFileFlag   = "--env-file"
	envFileEnvVar = "ENV_FILE"
	defaultEnv    = ".env"
)

// LoadEnvFile loads environment variables from a file before any flag parsing happens.
// Priority: --env-file flag, then the ENV_FILE environment variable, then .env in the working
// directory. An explicitly named file must exist; the .env default is optional.
func LoadEnvFile(args []string) error {
	if envFilePath := explicitEnvFilePath(args); envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return fmt.Errorf("loading env file %s: %w", envFilePath, err)
		}
		log.Debugf("loaded environment from %s", envFilePath)
		return nil
	}

	if _, err := os.Stat(defaultEnv); err == nil {
		if err = godotenv.Load(defaultEnv); err != nil {
			return fmt.Errorf("loading %s: %w", defaultEnv, err)
		}
		log.Debugf("loaded environment from %s", defaultEnv)
	}
	return nil
}

func explicitEnvFilePath(args []string) string {
	for i, arg := range args {
		if arg == envFileFlag && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(arg, envFileFlag+"="); ok {
			return v
		}
	}
	return os.Getenv(envFileEnvVar)
}
