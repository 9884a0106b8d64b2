package config

import (
	"os"

	"CapIot.telemetry/internal/auth"
)

// CredentialsFromEnv reads the OS_* variables into a set of credentials.
func CredentialsFromEnv() auth.Credentials {
	return auth.Credentials{
		Username:          os.Getenv("OS_USERNAME"),
		Password:          os.Getenv("OS_PASSWORD"),
		ProjectName:       os.Getenv("OS_PROJECT_NAME"),
		UserDomainName:    getEnv("OS_USER_DOMAIN_NAME", "Default"),
		ProjectDomainName: getEnv("OS_PROJECT_DOMAIN_NAME", "Default"),
		Token:             os.Getenv("OS_TOKEN"),
	}
}
