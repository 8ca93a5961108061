package config

import "os"

func IsDebug() bool {
	return os.Getenv("MODBOT_DEBUG") == "1"
}
