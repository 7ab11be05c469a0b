// Package filetransfer fetches tenant dimension snapshots from an SFTP endpoint.
package filetransfer

import (
	"fmt"
	"net"
	"strconv"
)

// Config carries one tenant's SFTP credentials, resolved from the admin database.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	Directory string
}

const defaultSFTPPort = 22

// NewConfig builds a Config from a tenant credential map. Port defaults to 22 and directory to
// the login directory.
func NewConfig(credentials map[string]string) (Config, error) {
	cfg := Config{
		Host:      credentials["host"],
		User:      credentials["user"],
		Password:  credentials["password"],
		Directory: credentials["directory"],
		Port:      defaultSFTPPort,
	}

	if rawPort := credentials["port"]; rawPort != "" {
		port, err := strconv.Atoi(rawPort)
		if err != nil {
			return Config{}, fmt.Errorf("parsing sftp port %q: %w", rawPort, err)
		}
		cfg.Port = port
	}
	if cfg.Directory == "" {
		cfg.Directory = "."
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("sftp host is required")
	}
	if c.User == "" {
		return fmt.Errorf("sftp user is required")
	}
	if c.Password == "" {
		return fmt.Errorf("sftp password is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("sftp port %d is out of range", c.Port)
	}
	return nil
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
