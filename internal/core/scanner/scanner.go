// Package scanner checks uploads with a ClamAV daemon before they are queued.
package scanner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	clamd "github.com/dutchcoders/go-clamd"

	"github.com/vish4lsharma/extractor/internal/core"
)

var _ core.Scanner = (*ClamdScanner)(nil)

// streamScanner is the part of the clamd client used for scanning.
type streamScanner interface {
	ScanStream(r io.Reader, abort chan bool) (chan *clamd.ScanResult, error)
}

// ClamdScanner streams files to clamd over INSTREAM.
type ClamdScanner struct {
	client streamScanner
}

// NewClamdScanner connects to clamd at address (tcp://host:port or a unix
// socket path) and verifies it answers PING.
func NewClamdScanner(address string) (*ClamdScanner, error) {
	client := clamd.NewClamd(address)
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to ClamAV at %s: %w", address, err)
	}
	return &ClamdScanner{client: client}, nil
}

// ScanFile returns an error wrapping core.ErrInfected when clamd reports a
// signature match.
func (s *ClamdScanner) ScanFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file for scanning: %w", err)
	}
	defer f.Close()

	abort := make(chan bool, 1)
	results, err := s.client.ScanStream(f, abort)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	var threats []string
	for {
		select {
		case <-ctx.Done():
			abort <- true
			return ctx.Err()
		case sr, ok := <-results:
			if !ok {
				if len(threats) > 0 {
					return fmt.Errorf("%s: %w", strings.Join(threats, ", "), core.ErrInfected)
				}
				return nil
			}
			switch sr.Status {
			case clamd.RES_FOUND:
				threats = append(threats, sr.Description)
			case clamd.RES_ERROR, clamd.RES_PARSE_ERROR:
				return fmt.Errorf("scan failed: %s", sr.Description)
			}
		}
	}
}
