package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.LedgerBackend)
	assert.Equal(t, "sistema", cfg.DefaultOperator)
	assert.Empty(t, cfg.SMTPHost)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", loc.String())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", BackendMemory)
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.LedgerBackend)
	assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", "sqlite")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("unknown timezone", func(t *testing.T) {
		t.Setenv("TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("dev secret in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestRecipients(t *testing.T) {
	cfg := &Config{ReportRecipients: " gerente@example.com, ,dono@example.com "}
	assert.Equal(t, []string{"gerente@example.com", "dono@example.com"}, cfg.Recipients())
	assert.Empty(t, (&Config{}).Recipients())
}
