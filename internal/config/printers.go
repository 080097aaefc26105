package config

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/makerspace/printwatch/internal/pkg/logger"
)

// LoadPrinterList reads printer addresses from a text file, one per
// line. Blank lines and lines starting with '#' are ignored. Lines that
// do not look like a host or host:port are skipped with a warning.
// A missing or unreadable file is a setup error.
func LoadPrinterList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open printer list %s: %w", path, err)
	}
	defer f.Close()

	var addrs []string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !validAddress(line) {
			logger.Warn("skipping malformed printer address",
				"file", path, "line", lineNo, "value", line)
			continue
		}
		addrs = append(addrs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read printer list %s: %w", path, err)
	}

	return addrs, nil
}

// validAddress accepts an IP, hostname, or host:port.
func validAddress(s string) bool {
	host := s
	if h, p, err := net.SplitHostPort(s); err == nil {
		if p == "" {
			return false
		}
		host = h
	}
	if host == "" || strings.ContainsAny(host, " \t/") {
		return false
	}
	return true
}
