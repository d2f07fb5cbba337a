package service

import (
	"time"

	"ktp-deploy/internal/config"
	"ktp-deploy/internal/model"
	"ktp-deploy/internal/pkg/ssh"
)

// Session is the remote transport surface the orchestrator needs from one
// host. *ssh.Client satisfies it; tests substitute an in-memory fake.
type Session interface {
	EnsureDir(dir string) error
	Upload(localPath, remotePath string) error
	WriteFile(remotePath, content string) error
	Chmod(path, mode string) error
	FileExists(path string) (bool, error)
	CopyFile(src, dst string) error
	PatchOrAppendLine(path, key, line string) error
	Close() error
}

// Dialer opens a Session to a cluster's host. Dry runs never invoke it.
type Dialer func(cluster *model.Cluster) (Session, error)

// SSHDialer builds the production dialer from the resolved SSH settings.
func SSHDialer(cfg config.SSHConfig) Dialer {
	return func(cluster *model.Cluster) (Session, error) {
		client, err := ssh.Dial(ssh.Config{
			Host:           cluster.Host,
			User:           cluster.User,
			Password:       cluster.Password,
			KeyFile:        cfg.KeyFile,
			ConnectTimeout: time.Duration(cfg.ConnectTimeout) * time.Second,
			CommandTimeout: time.Duration(cfg.CommandTimeout) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
