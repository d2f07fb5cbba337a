package service

import (
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"ktp-deploy/internal/model"
)

// fakeHost simulates one remote filesystem shared by every session dialed to
// it, so backups, uploads and config writes can be asserted after a run.
type fakeHost struct {
	mu      sync.Mutex
	files   map[string]string
	dirs    map[string]bool
	created []string // every directory EnsureDir actually made, in order
	chmods  map[string]string
	dials   int
	closes  int

	failUpload map[string]bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		files:      make(map[string]string),
		dirs:       map[string]bool{"/": true},
		chmods:     make(map[string]string),
		failUpload: make(map[string]bool),
	}
}

func (h *fakeHost) dialer() Dialer {
	return func(cluster *model.Cluster) (Session, error) {
		h.mu.Lock()
		h.dials++
		h.mu.Unlock()
		return &fakeSession{host: h}, nil
	}
}

func (h *fakeHost) seed(path, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[path] = content
}

func (h *fakeHost) content(path string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	content, ok := h.files[path]
	return content, ok
}

// backupsUnder returns the backup files below dir keyed by path.
func (h *fakeHost) backupsUnder(dir string) map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	found := make(map[string]string)
	for p, content := range h.files {
		if strings.HasPrefix(p, dir+"/") && strings.HasSuffix(p, ".bak") {
			found[p] = content
		}
	}
	return found
}

type fakeSession struct {
	host *fakeHost
}

func (s *fakeSession) EnsureDir(dir string) error {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()

	var missing []string
	for p := dir; p != "/" && p != "." && p != ""; p = path.Dir(p) {
		if s.host.dirs[p] {
			break
		}
		missing = append(missing, p)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		s.host.dirs[missing[i]] = true
		s.host.created = append(s.host.created, missing[i])
	}
	return nil
}

func (s *fakeSession) Upload(localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	if s.host.failUpload[remotePath] {
		return fmt.Errorf("simulated transfer failure: %s", remotePath)
	}
	s.host.files[remotePath] = string(data)
	return nil
}

func (s *fakeSession) WriteFile(remotePath, content string) error {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	s.host.files[remotePath] = content
	return nil
}

func (s *fakeSession) Chmod(path, mode string) error {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	s.host.chmods[path] = mode
	return nil
}

func (s *fakeSession) FileExists(path string) (bool, error) {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	_, ok := s.host.files[path]
	return ok, nil
}

func (s *fakeSession) CopyFile(src, dst string) error {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	content, ok := s.host.files[src]
	if !ok {
		return fmt.Errorf("cp: no such file: %s", src)
	}
	s.host.files[dst] = content
	return nil
}

func (s *fakeSession) PatchOrAppendLine(p, key, line string) error {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()

	content, ok := s.host.files[p]
	if !ok {
		s.host.files[p] = line + "\n"
		return nil
	}

	lines := strings.Split(content, "\n")
	patched := false
	for i, l := range lines {
		if strings.HasPrefix(l, key+"=") {
			lines[i] = line
			patched = true
		}
	}
	if !patched {
		lines = append(lines, line)
	}
	s.host.files[p] = strings.Join(lines, "\n")
	return nil
}

func (s *fakeSession) Close() error {
	s.host.mu.Lock()
	defer s.host.mu.Unlock()
	s.host.closes++
	return nil
}
