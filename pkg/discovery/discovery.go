// Package discovery locates hook event logs on disk.
//
// The hook writes one JSONL log per session, either directly in the
// events directory or one level down (events/<project>/<session>.jsonl).
// Discovery lists those logs newest first so the HUD can attach to the
// session that is currently active.
//
// Example usage:
//
//	d := discovery.New([]string{"~/.claude/hud/events"}, logger.Default())
//	latest, err := d.Latest()
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("following %s (session %s)\n", latest.FilePath, latest.SessionID)
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/0xmhha/agent-hud/pkg/logger"
)

// DefaultEventsDir is where the hook writes its logs by default.
const DefaultEventsDir = "~/.claude/hud/events"

// Logger defines the logging interface used by the discovery package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// LogFile is a discovered event log.
type LogFile struct {
	// SessionID is taken from the file name when it is a UUID, and is
	// empty otherwise.
	SessionID string

	// FilePath is the path to the log.
	FilePath string

	// Dir is the directory containing the log.
	Dir string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime time.Time
}

// Discoverer finds event logs.
type Discoverer interface {
	// Discover returns every log under the configured directories,
	// most recently modified first. Missing directories are skipped.
	Discover() ([]LogFile, error)

	// Latest returns the most recently modified log, or
	// ErrNoLogsFound.
	Latest() (LogFile, error)

	// FindSession returns the log whose name is the given session id,
	// or ErrSessionNotFound.
	FindSession(sessionID string) (LogFile, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	baseDirs []string
	log      Logger
}

// New creates a new Discoverer. An empty baseDirs scans DefaultEventsDir.
func New(baseDirs []string, log Logger) Discoverer {
	if len(baseDirs) == 0 {
		baseDirs = []string{DefaultEventsDir}
	}
	if log == nil {
		log = logger.Noop()
	}
	return &discoverer{
		baseDirs: baseDirs,
		log:      log,
	}
}

// Discover implements Discoverer.Discover.
func (d *discoverer) Discover() ([]LogFile, error) {
	var all []LogFile

	for _, baseDir := range d.baseDirs {
		expandedDir := logger.ExpandHome(baseDir)

		if _, err := os.Stat(expandedDir); err != nil {
			if os.IsNotExist(err) {
				d.log.Debug("events directory not found, skipping", "path", expandedDir)
				continue
			}
			return nil, fmt.Errorf("failed to stat directory %s: %w", expandedDir, err)
		}

		logs, err := d.scanDirectory(expandedDir, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", expandedDir, err)
		}
		all = append(all, logs...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].ModTime.Equal(all[j].ModTime) {
			return all[i].ModTime.After(all[j].ModTime)
		}
		return all[i].FilePath < all[j].FilePath
	})

	d.log.Debug("discovery complete", "total_logs", len(all))
	return all, nil
}

// Latest implements Discoverer.Latest.
func (d *discoverer) Latest() (LogFile, error) {
	logs, err := d.Discover()
	if err != nil {
		return LogFile{}, err
	}
	if len(logs) == 0 {
		return LogFile{}, ErrNoLogsFound
	}
	return logs[0], nil
}

// FindSession implements Discoverer.FindSession.
func (d *discoverer) FindSession(sessionID string) (LogFile, error) {
	logs, err := d.Discover()
	if err != nil {
		return LogFile{}, err
	}
	for _, l := range logs {
		if l.SessionID != "" && strings.EqualFold(l.SessionID, sessionID) {
			return l, nil
		}
	}
	return LogFile{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
}

// scanDirectory lists logs in dir and, when descend is set, in its
// immediate subdirectories.
func (d *discoverer) scanDirectory(dir string, descend bool) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	logs := make([]LogFile, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if !descend || strings.HasPrefix(name, ".") {
				continue
			}
			sub, err := d.scanDirectory(path, false)
			if err != nil {
				d.log.Warn("failed to scan subdirectory", "path", path, "error", err)
				continue
			}
			logs = append(logs, sub...)
			continue
		}

		if !strings.EqualFold(filepath.Ext(name), ".jsonl") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			d.log.Warn("failed to get file info", "path", path, "error", err)
			continue
		}

		logs = append(logs, LogFile{
			SessionID: sessionIDFromName(name),
			FilePath:  path,
			Dir:       dir,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
		})
	}

	d.log.Debug("scanned events directory", "path", dir, "logs_found", len(logs))
	return logs, nil
}

// sessionIDFromName returns the base name without extension when it is
// a UUID, and "" otherwise.
func sessionIDFromName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	id, err := uuid.Parse(base)
	if err != nil || len(base) != 36 {
		return ""
	}
	return id.String()
}
