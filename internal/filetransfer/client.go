package filetransfer

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/storelens/storelens-ingestion-backend/internal/data"
)

// File prefixes of the dimension snapshots tenants drop on the endpoint. The newest file per
// prefix is the current snapshot.
const (
	usersFilePrefix     = "users"
	locationsFilePrefix = "locations"
)

// ErrNoSnapshotFile is returned when the endpoint holds no file for the requested prefix.
// Callers treat it as an empty snapshot.
var ErrNoSnapshotFile = fmt.Errorf("no snapshot file found")

// ClientInterface is the file-transfer contract the ingestion worker consumes.
type ClientInterface interface {
	GetLatestUsersData(ctx context.Context) ([]data.UserRecord, error)
	GetLatestLocationsData(ctx context.Context) ([]data.LocationRecord, error)
	Close() error
}

type Client struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
	directory  string
}

var _ ClientInterface = (*Client)(nil)

const dialTimeout = 15 * time.Second

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating sftp config: %w", err)
	}

	sshConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // tenant endpoints have no published host keys
		Timeout:         dialTimeout,
	}

	sshClient, err := ssh.Dial("tcp", cfg.Address(), sshConfig)
	if err != nil {
		return nil, fmt.Errorf("dialing sftp endpoint %s: %w", cfg.Address(), err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("starting sftp subsystem on %s: %w", cfg.Address(), err)
	}

	return &Client{
		sshClient:  sshClient,
		sftpClient: sftpClient,
		directory:  cfg.Directory,
	}, nil
}

// GetLatestUsersData downloads and parses the newest users snapshot. A missing snapshot is an
// empty result, not an error.
func (c *Client) GetLatestUsersData(ctx context.Context) ([]data.UserRecord, error) {
	contents, err := c.fetchNewestFile(ctx, usersFilePrefix)
	if err != nil {
		if err == ErrNoSnapshotFile {
			return nil, nil
		}
		return nil, err
	}
	return ParseUsersCSV(contents)
}

// GetLatestLocationsData downloads and parses the newest locations snapshot. A missing snapshot
// is an empty result, not an error.
func (c *Client) GetLatestLocationsData(ctx context.Context) ([]data.LocationRecord, error) {
	contents, err := c.fetchNewestFile(ctx, locationsFilePrefix)
	if err != nil {
		if err == ErrNoSnapshotFile {
			return nil, nil
		}
		return nil, err
	}
	return ParseLocationsCSV(contents)
}

func (c *Client) Close() error {
	var firstErr error
	if c.sftpClient != nil {
		firstErr = c.sftpClient.Close()
	}
	if c.sshClient != nil {
		if err := c.sshClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Client) fetchNewestFile(ctx context.Context, prefix string) ([]byte, error) {
	name, err := c.newestFileWithPrefix(prefix)
	if err != nil {
		return nil, err
	}

	log.WithContext(ctx).Infof("downloading snapshot file %s", name)
	f, err := c.sftpClient.Open(path.Join(c.directory, name))
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file %s: %w", name, err)
	}
	defer f.Close()

	contents, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file %s: %w", name, err)
	}
	return contents, nil
}

// newestFileWithPrefix picks the most recently modified csv file with the prefix. Tenants keep
// historical snapshots around, only the newest one is the current state.
func (c *Client) newestFileWithPrefix(prefix string) (string, error) {
	entries, err := c.sftpClient.ReadDir(c.directory)
	if err != nil {
		return "", fmt.Errorf("listing sftp directory %s: %w", c.directory, err)
	}

	newest := ""
	var newestModTime time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(strings.ToLower(name), ".csv") {
			continue
		}
		if newest == "" || entry.ModTime().After(newestModTime) {
			newest = name
			newestModTime = entry.ModTime()
		}
	}

	if newest == "" {
		return "", ErrNoSnapshotFile
	}
	return newest, nil
}
