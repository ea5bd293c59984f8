package database

import (
	"fmt"
	"net/url"

	"github.com/STRATINT/replybot/internal/config"
)

// BuildURL returns the connection string for the postgres state backend.
// DATABASE_URL wins; otherwise the Cloud SQL unix socket mounted by Cloud Run
// at /cloudsql/<instance> is used.
func BuildURL(cfg config.StateConfig) (string, error) {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL, nil
	}
	if cfg.InstanceConnectionName == "" {
		return "", fmt.Errorf("neither DATABASE_URL nor INSTANCE_CONNECTION_NAME is set")
	}
	if cfg.DBUser == "" || cfg.DBName == "" {
		return "", fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
	}

	socketPath := "/cloudsql/" + cfg.InstanceConnectionName
	if cfg.DBPassword != "" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
			socketPath, cfg.DBUser, cfg.DBPassword, cfg.DBName), nil
	}
	// IAM authentication, no password
	return fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable",
		socketPath, cfg.DBUser, cfg.DBName), nil
}

// Describe summarises the connection target for logging without credentials.
func Describe(cfg config.StateConfig) map[string]string {
	switch {
	case cfg.DatabaseURL != "":
		return map[string]string{
			"connection_type": "direct",
			"database_url":    redactPassword(cfg.DatabaseURL),
		}
	case cfg.InstanceConnectionName != "":
		return map[string]string{
			"connection_type": "cloud_sql",
			"instance":        cfg.InstanceConnectionName,
			"user":            cfg.DBUser,
			"database":        cfg.DBName,
		}
	default:
		return map[string]string{"connection_type": "none"}
	}
}

func redactPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.User == nil {
		return connStr
	}
	if _, ok := u.User.Password(); !ok {
		return connStr
	}
	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String()
}
