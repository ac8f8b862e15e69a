package session

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hpcloud/tail"

	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/pkg/models"
)

// vncBasePort maps display numbers to tcp ports: display :N listens on
// 5900+N.
const vncBasePort = 5900

var (
	// "Listening for VNC connections on Unix socket /jobs/1001/vnc/socket.uds"
	reUnixSocket = regexp.MustCompile(`(?i)unix socket:?\s+(\S+)`)
	// "Listening for VNC connections on TCP port 5901"
	reTCPPort = regexp.MustCompile(`(?i)vnc connections on (?:tcp )?port\s+(\d+)`)
	// "New 'n001:1 (user)' desktop is n001:1"
	reDesktop = regexp.MustCompile(`desktop is \S+:(\d+)\s*$`)
)

// discoverEndpoint determines where the VNC server listens by reading the
// session's capture file, bounded by the configured discovery timeout. The
// file is written by the VNC app on the compute node and read here over the
// shared filesystem, so tailing polls instead of relying on inotify.
//
// Existing content is scanned first with the last banner winning, so a
// restarted server's newest endpoint shadows earlier ones. Only when the
// existing content has no banner does discovery follow the file for new
// lines.
func (m *Manager) discoverEndpoint(ctx context.Context, sess *models.Session) (*models.Endpoint, error) {
	timeout := m.cfg.Container.DiscoveryTimeout.Std()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	capture := m.store.CapturePath(sess.JobID)
	node := sess.Allocation.Node()

	if err := waitForFile(ctx, capture); err != nil {
		return nil, errors.EndpointDiscoveryTimeout(sess.JobID, timeout).
			WithDetail("capture_file", capture)
	}

	if endpoint := scanCapture(capture, node); endpoint != nil {
		return endpoint, nil
	}

	endpoint, err := m.followCapture(ctx, capture, node)
	if err != nil {
		return nil, errors.EndpointDiscoveryTimeout(sess.JobID, timeout).
			WithDetail("capture_file", capture)
	}
	return endpoint, nil
}

// waitForFile blocks until path exists. It watches the parent directory for
// create events and stats as a fallback, since shared filesystems deliver
// events unreliably.
func waitForFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-watcher.Events:
			if event.Name == path && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				return nil
			}
		case <-watcher.Errors:
		case <-ticker.C:
		}
	}
}

// scanCapture parses the existing capture content and returns the last
// endpoint banner found, or nil.
func scanCapture(path, node string) *models.Endpoint {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var last *models.Endpoint
	for _, line := range strings.Split(string(data), "\n") {
		if endpoint := parseEndpointLine(line, node); endpoint != nil {
			last = endpoint
		}
	}
	return last
}

// followCapture tails the capture file from its current end until a banner
// appears or ctx expires.
func (m *Manager) followCapture(ctx context.Context, path, node string) (*models.Endpoint, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   false,
		Poll:     true,
		Location: &tail.SeekInfo{Whence: io.SeekEnd},
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = t.Stop()
		t.Cleanup()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case line, ok := <-t.Lines:
			if !ok {
				if err := t.Err(); err != nil {
					return nil, err
				}
				return nil, io.EOF
			}
			if line.Err != nil {
				continue
			}
			if endpoint := parseEndpointLine(line.Text, node); endpoint != nil {
				return endpoint, nil
			}
		}
	}
}

// parseEndpointLine extracts an endpoint from one line of VNC server output.
// Socket banners win over port banners on the same line.
func parseEndpointLine(line, node string) *models.Endpoint {
	if match := reUnixSocket.FindStringSubmatch(line); match != nil {
		return &models.Endpoint{Socket: match[1]}
	}
	if match := reTCPPort.FindStringSubmatch(line); match != nil {
		port, err := strconv.Atoi(match[1])
		if err != nil {
			return nil
		}
		return &models.Endpoint{Host: node, Port: port}
	}
	if match := reDesktop.FindStringSubmatch(line); match != nil {
		display, err := strconv.Atoi(match[1])
		if err != nil {
			return nil
		}
		return &models.Endpoint{Host: node, Port: vncBasePort + display}
	}
	return nil
}
