// Package store persists session records on the shared filesystem. Each
// session owns a directory named after its job id containing a YAML record,
// the scheduler output capture file, and an advisory lock file. The directory
// survives the process so a crash never orphans a running job silently.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/logging"
	"github.com/hyakvnc/hyakvnc/pkg/models"
)

const (
	recordFile  = "session.yaml"
	captureFile = "vnc.out"
	lockFile    = "lock"
)

// Store reads and writes session records under a root directory.
type Store struct {
	root   string
	logger *logrus.Entry
}

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create session store")
	}
	return &Store{
		root:   dir,
		logger: logging.NewLogger("store"),
	}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the session directory for a job id.
func (s *Store) Dir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

// RecordPath returns the path of a session's YAML record.
func (s *Store) RecordPath(jobID string) string {
	return filepath.Join(s.Dir(jobID), recordFile)
}

// CapturePath returns the path of a session's VNC app capture file. The VNC
// server inside the allocation appends its startup banner here, so the path
// must be reachable from both login and compute nodes.
func (s *Store) CapturePath(jobID string) string {
	return filepath.Join(s.Dir(jobID), captureFile)
}

// Save writes the session record atomically. The record is written to a
// temporary file in the session directory and renamed into place so a reader
// never observes a partial record.
func (s *Store) Save(sess *models.Session) error {
	if sess.JobID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "session has no job id")
	}
	dir := s.Dir(sess.JobID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create session directory")
	}

	data, err := yaml.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode session record")
	}

	tmp, err := os.CreateTemp(dir, recordFile+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create temporary record")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write session record")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write session record")
	}
	if err := os.Rename(tmpName, s.RecordPath(sess.JobID)); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to replace session record")
	}

	sess.Directory = dir
	s.logger.WithFields(logrus.Fields{
		"job_id": sess.JobID,
		"state":  sess.State,
	}).Debug("Saved session record")
	return nil
}

// Get loads one session record. A missing directory is SESSION_NOT_FOUND; a
// directory whose record is missing or unreadable is STORE_CORRUPTION, since
// it may still shadow a live allocation.
func (s *Store) Get(jobID string) (*models.Session, error) {
	dir := s.Dir(jobID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, errors.SessionNotFound(jobID)
	}

	data, err := os.ReadFile(s.RecordPath(jobID))
	if err != nil {
		return nil, errors.StoreCorruption(jobID, "session record missing or unreadable")
	}
	var sess models.Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, errors.StoreCorruption(jobID, fmt.Sprintf("session record does not parse: %v", err))
	}
	if sess.JobID == "" {
		return nil, errors.StoreCorruption(jobID, "session record has no job id")
	}
	sess.Directory = dir
	return &sess, nil
}

// List returns every readable session record sorted by job id. Unreadable
// entries are skipped with a warning so one corrupt directory cannot hide the
// healthy sessions beside it; use Orphans to find what was skipped.
func (s *Store) List() ([]*models.Session, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read session store")
	}

	var sessions []*models.Session
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sess, err := s.Get(entry.Name())
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"job_id": entry.Name(),
				"error":  err,
			}).Warn("Skipping unreadable session record")
			continue
		}
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].JobID < sessions[j].JobID })
	return sessions, nil
}

// Orphans returns the job ids of session directories whose record cannot be
// read. Callers surface these for explicit cleanup rather than deleting them.
func (s *Store) Orphans() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read session store")
	}

	var orphans []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := s.Get(entry.Name()); err != nil && errors.GetCode(err) == errors.ErrCodeStoreCorruption {
			orphans = append(orphans, entry.Name())
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}

// Delete removes a session directory and everything in it. Deleting a
// session that does not exist is not an error.
func (s *Store) Delete(jobID string) error {
	if jobID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "session has no job id")
	}
	if err := os.RemoveAll(s.Dir(jobID)); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to remove session directory")
	}
	return nil
}
