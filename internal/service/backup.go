package service

import (
	"path"
	"time"

	"go.uber.org/zap"
)

const backupTimestampLayout = "20060102_150405"

// BackupOutcome reports what a backup attempt did. Backups are advisory:
// the outcome is logged and the deployment proceeds either way, so Backup
// never returns an error to the caller.
type BackupOutcome struct {
	Skipped    bool
	BackupPath string
	Err        error
}

// BackupManager snapshots a remote file into a versioned backup directory
// before it is overwritten.
type BackupManager struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewBackupManager(logger *zap.Logger) *BackupManager {
	return &BackupManager{logger: logger, now: time.Now}
}

// Backup copies remotePath to backupDir/<base>.<timestamp>.bak using a
// remote-side copy. A missing source file is a successful no-op. Timestamp
// granularity is seconds; same-second backups of one file overwrite each
// other, which is accepted for a recovery artifact.
func (b *BackupManager) Backup(sess Session, remotePath, backupDir string) BackupOutcome {
	exists, err := sess.FileExists(remotePath)
	if err != nil {
		b.logger.Warn("backup: could not stat remote file",
			zap.String("path", remotePath), zap.Error(err))
		return BackupOutcome{Err: err}
	}
	if !exists {
		return BackupOutcome{Skipped: true}
	}

	if err := sess.EnsureDir(backupDir); err != nil {
		b.logger.Warn("backup: could not create backup directory",
			zap.String("dir", backupDir), zap.Error(err))
		return BackupOutcome{Err: err}
	}

	backupPath := backupDir + "/" + path.Base(remotePath) + "." + b.now().Format(backupTimestampLayout) + ".bak"
	if err := sess.CopyFile(remotePath, backupPath); err != nil {
		b.logger.Warn("backup: copy failed",
			zap.String("path", remotePath), zap.Error(err))
		return BackupOutcome{Err: err}
	}

	b.logger.Debug("backed up remote file",
		zap.String("path", remotePath), zap.String("backup", backupPath))
	return BackupOutcome{BackupPath: backupPath}
}
