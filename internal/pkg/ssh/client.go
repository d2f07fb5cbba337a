package ssh

import (
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

type Config struct {
	Host           string
	User           string
	Password       string
	KeyFile        string
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

// Client is one authenticated transport to a single host. It is never reused
// across clusters; the orchestrator opens and closes it per unit of work.
type Client struct {
	config Config
	conn   *ssh.Client
}

type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Dial opens the connection. Password auth is used when a password is
// configured, otherwise the ambient key file. The connect timeout is bounded
// so an unreachable host fails fast instead of stalling the fleet run.
func Dial(config Config) (*Client, error) {
	var auth []ssh.AuthMethod

	if config.Password != "" {
		auth = append(auth, ssh.Password(config.Password))
	} else {
		key, err := os.ReadFile(config.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file %s: %w", config.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	clientConfig := &ssh.ClientConfig{
		User:            config.User,
		Auth:            auth,
		Timeout:         timeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := net.JoinHostPort(config.Host, "22")
	conn, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}

	return &Client{config: config, conn: conn}, nil
}

// Run executes a command and returns its output. A non-zero exit status is
// reported through ExitCode, not as an error; errors mean the transport or
// session itself failed.
func (c *Client) Run(cmd string) (*CommandResult, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("ssh connection not established")
	}

	session, err := c.conn.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create ssh session: %w", err)
	}
	defer session.Close()

	var stdoutBuf, stderrBuf strings.Builder
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	timeout := c.config.CommandTimeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	select {
	case err = <-done:
	case <-time.After(timeout):
		session.Close()
		return nil, fmt.Errorf("command timed out after %s", timeout)
	}

	result := &CommandResult{
		Stdout: strings.TrimSpace(stdoutBuf.String()),
		Stderr: strings.TrimSpace(stderrBuf.String()),
	}

	if err != nil {
		exitErr, ok := err.(*ssh.ExitError)
		if !ok {
			return nil, fmt.Errorf("run command: %w", err)
		}
		result.ExitCode = exitErr.ExitStatus()
	}

	return result, nil
}

// WriteFile streams content into a remote file, creating or truncating it.
func (c *Client) WriteFile(remotePath, content string) error {
	if c.conn == nil {
		return fmt.Errorf("ssh connection not established")
	}

	session, err := c.conn.NewSession()
	if err != nil {
		return fmt.Errorf("create ssh session: %w", err)
	}
	defer session.Close()

	w, err := session.StdinPipe()
	if err != nil {
		return err
	}

	if err := session.Start("cat > " + Quote(remotePath)); err != nil {
		return err
	}

	if _, err := io.WriteString(w, content); err != nil {
		return err
	}
	w.Close()

	return session.Wait()
}

// Upload copies a local file to the remote path.
func (c *Client) Upload(localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	return c.WriteFile(remotePath, string(data))
}

// EnsureDir creates the directory and its full parent chain. It walks upward
// collecting missing ancestors, then creates them root to leaf. Creation
// races (already exists) are swallowed.
func (c *Client) EnsureDir(dir string) error {
	var missing []string
	for p := dir; p != "/" && p != "." && p != ""; p = path.Dir(p) {
		exists, err := c.DirExists(p)
		if err != nil {
			return err
		}
		if exists {
			break
		}
		missing = append(missing, p)
	}

	for i := len(missing) - 1; i >= 0; i-- {
		if _, err := c.Run("mkdir " + Quote(missing[i])); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) FileExists(p string) (bool, error) {
	result, err := c.Run("test -f " + Quote(p))
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}

func (c *Client) DirExists(p string) (bool, error) {
	result, err := c.Run("test -d " + Quote(p))
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}

// CopyFile copies a file remote-side, avoiding a local round-trip.
func (c *Client) CopyFile(src, dst string) error {
	result, err := c.Run(fmt.Sprintf("cp %s %s", Quote(src), Quote(dst)))
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("cp exited %d: %s", result.ExitCode, result.Stderr)
	}
	return nil
}

// Chmod applies an octal mode string like "755".
func (c *Client) Chmod(p, mode string) error {
	result, err := c.Run(fmt.Sprintf("chmod %s %s", Quote(mode), Quote(p)))
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("chmod exited %d: %s", result.ExitCode, result.Stderr)
	}
	return nil
}

// PatchOrAppendLine replaces the `key=...` line in a remote file with line,
// or appends line if no such key exists.
func (c *Client) PatchOrAppendLine(p, key, line string) error {
	file := Quote(p)
	cmd := fmt.Sprintf("grep -q %s %s && sed -i %s %s || echo %s >> %s",
		Quote("^"+key+"="), file,
		Quote("s|^"+key+"=.*|"+line+"|"), file,
		Quote(line), file)

	result, err := c.Run(cmd)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("patch %s exited %d: %s", p, result.ExitCode, result.Stderr)
	}
	return nil
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Quote wraps s in single quotes for the remote shell, escaping embedded
// single quotes. All remote commands are built through this instead of raw
// string concatenation.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
