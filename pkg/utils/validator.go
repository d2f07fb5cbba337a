package utils

import (
	"fmt"
	"strconv"
)

func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port out of range 1-65535: %d", port)
	}
	return nil
}

// ValidateInstancePort checks a port against the relay's accepted window.
func ValidateInstancePort(port, min, max int) error {
	if port < min || port > max {
		return fmt.Errorf("port must be %d-%d", min, max)
	}
	return nil
}

// ValidateVersion rejects version strings that could not name an artifacts
// directory. Versions look like 20260127 or "test".
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version must not be empty")
	}
	for _, r := range version {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return fmt.Errorf("version contains invalid character %q: %s", r, version)
		}
	}
	return nil
}

// ValidateChmod checks an octal permission string like "755".
func ValidateChmod(mode string) error {
	if mode == "" {
		return nil
	}
	if _, err := strconv.ParseUint(mode, 8, 32); err != nil {
		return fmt.Errorf("invalid chmod value: %s", mode)
	}
	return nil
}

func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse port: %w", err)
	}
	if err := ValidatePort(port); err != nil {
		return 0, err
	}
	return port, nil
}
