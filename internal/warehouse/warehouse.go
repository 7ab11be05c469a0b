// Package warehouse queries the tenant's columnar event warehouse over the snowflake driver.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // snowflake driver
)

// Config carries one tenant's warehouse credentials, resolved from the admin database.
type Config struct {
	Account   string
	User      string
	Password  string
	Database  string
	Schema    string
	Warehouse string
}

// NewConfig builds a Config from a tenant credential map. Warehouse is optional, the account
// default is used when absent.
func NewConfig(credentials map[string]string) (Config, error) {
	cfg := Config{
		Account:   credentials["account"],
		User:      credentials["user"],
		Password:  credentials["password"],
		Database:  credentials["database"],
		Schema:    credentials["schema"],
		Warehouse: credentials["warehouse"],
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Account == "" {
		return fmt.Errorf("warehouse account is required")
	}
	if c.User == "" {
		return fmt.Errorf("warehouse user is required")
	}
	if c.Password == "" {
		return fmt.Errorf("warehouse password is required")
	}
	if c.Database == "" {
		return fmt.Errorf("warehouse database is required")
	}
	if c.Schema == "" {
		return fmt.Errorf("warehouse schema is required")
	}
	return nil
}

// DSN renders the snowflake connection string: user:password@account/database/schema[?warehouse=].
func (c Config) DSN() string {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s", url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Account, c.Database, c.Schema)
	if c.Warehouse != "" {
		dsn += "?warehouse=" + url.QueryEscape(c.Warehouse)
	}
	return dsn
}

type Client struct {
	db *sql.DB
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating warehouse config: %w", err)
	}

	db, err := sql.Open("snowflake", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening snowflake connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Client{db: db}, nil
}

// NewClientFromDB wraps an existing database handle. Used by tests.
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
