package filetransfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewConfig(t *testing.T) {
	t.Run("🔴 missing host", func(t *testing.T) {
		_, err := NewConfig(map[string]string{"user": "u", "password": "p"})
		require.ErrorContains(t, err, "sftp host is required")
	})

	t.Run("🔴 malformed port", func(t *testing.T) {
		_, err := NewConfig(map[string]string{"host": "sftp.example.com", "user": "u", "password": "p", "port": "twenty-two"})
		require.ErrorContains(t, err, `parsing sftp port "twenty-two"`)
	})

	t.Run("🟢 defaults port and directory", func(t *testing.T) {
		cfg, err := NewConfig(map[string]string{"host": "sftp.example.com", "user": "u", "password": "p"})
		require.NoError(t, err)
		assert.Equal(t, 22, cfg.Port)
		assert.Equal(t, ".", cfg.Directory)
		assert.Equal(t, "sftp.example.com:22", cfg.Address())
	})

	t.Run("🟢 explicit port and directory", func(t *testing.T) {
		cfg, err := NewConfig(map[string]string{"host": "sftp.example.com", "user": "u", "password": "p", "port": "2222", "directory": "/exports"})
		require.NoError(t, err)
		assert.Equal(t, "sftp.example.com:2222", cfg.Address())
		assert.Equal(t, "/exports", cfg.Directory)
	})
}
