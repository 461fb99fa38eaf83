// Package archive stores each team's reports as an append-only directory of
// JSON records plus a latest.json pointer.
//
// Layout: <root>/<team_id>/<YYYYMMDD_HHMMSS_mmm>_<id>.json
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/benchboard/internal/domain/model"
	"github.com/okian/benchboard/pkg/logger"
	"github.com/okian/benchboard/pkg/metrics"
)

const (
	latestName  = "latest.json"
	recordExt   = ".json"
	tempPattern = ".tmp-*"
	stampLayout = "20060102_150405"
	stampLen    = len("20060102_150405_000")
	idLen       = 8

	dirPerm  = 0o755
	filePerm = 0o644
)

// Store is a filesystem-backed team archive.
type Store struct {
	root  string
	log   logger.Logger
	newID func() string

	// latestMu orders latest.json rewrites so an older report never
	// replaces a newer one.
	latestMu sync.Mutex
}

// New creates a Store rooted at dir. The directory is created lazily.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		root:  dir,
		newID: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLen] },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("archive")
	}
	return s
}

// Root returns the archive root directory.
func (s *Store) Root() string { return s.root }

// ValidateTeamID reports whether id is usable as a single path segment.
func ValidateTeamID(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidTeamID, id)
	case strings.ContainsAny(id, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidTeamID, id)
	}
	return nil
}

func (s *Store) teamDir(teamID string) (string, error) {
	if err := ValidateTeamID(teamID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, teamID), nil
}

// Append durably writes a new record for the report and then rewrites the
// team's latest.json if the report is the newest. The record is complete on
// disk before it becomes visible under its final name.
func (s *Store) Append(ctx context.Context, r model.Report) (model.RecordRef, error) {
	if err := ctx.Err(); err != nil {
		return model.RecordRef{}, err
	}
	dir, err := s.teamDir(r.TeamID)
	if err != nil {
		return model.RecordRef{}, err
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		metrics.RecordArchiveWriteError()
		return model.RecordRef{}, fmt.Errorf("create team dir: %w", err)
	}

	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return model.RecordRef{}, fmt.Errorf("encode record: %w", err)
	}

	ts := r.SubmittedAt.UTC().Truncate(time.Millisecond)
	id := recordID(ts, s.newID())
	path := filepath.Join(dir, id+recordExt)
	if err := writeAtomic(dir, path, body); err != nil {
		metrics.RecordArchiveWriteError()
		return model.RecordRef{}, fmt.Errorf("write record %s: %w", id, err)
	}
	if err := s.writeLatest(dir, r.SubmittedAt, body); err != nil {
		metrics.RecordArchiveWriteError()
		return model.RecordRef{}, fmt.Errorf("write latest: %w", err)
	}
	metrics.RecordArchiveWrite()

	return model.RecordRef{ID: id, Timestamp: ts, Locator: path}, nil
}

// List returns the team's records, newest first; equal timestamps are ordered
// by id descending. Entries whose names cannot be parsed are skipped.
func (s *Store) List(ctx context.Context, teamID string) ([]model.RecordRef, error) {
	dir, err := s.teamDir(teamID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveUnavailable, teamID)
		}
		return nil, fmt.Errorf("read team dir: %w", err)
	}

	refs := make([]model.RecordRef, 0, len(entries))
	for _, e := range entries {
		if !isRecordName(e) {
			continue
		}
		ref, ok := parseRecordName(e.Name())
		if !ok {
			metrics.RecordRecordUnreadable()
			s.log.Warn(ctx, "skipping unparseable archive entry",
				logger.String("team_id", teamID), logger.String("name", e.Name()))
			continue
		}
		ref.Locator = filepath.Join(dir, e.Name())
		refs = append(refs, ref)
	}

	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].Timestamp.Equal(refs[j].Timestamp) {
			return refs[i].Timestamp.After(refs[j].Timestamp)
		}
		return refs[i].ID > refs[j].ID
	})
	return refs, nil
}

// writeLatest replaces latest.json unless it already holds a newer report.
func (s *Store) writeLatest(dir string, at time.Time, body []byte) error {
	s.latestMu.Lock()
	defer s.latestMu.Unlock()

	path := filepath.Join(dir, latestName)
	if cur, err := readReport(path); err == nil && cur.SubmittedAt.After(at) {
		return nil
	}
	return writeAtomic(dir, path, body)
}

// Load reads one record. Any read or decode failure wraps ErrRecordUnreadable.
func (s *Store) Load(ctx context.Context, ref model.RecordRef) (model.Report, error) {
	if err := ctx.Err(); err != nil {
		return model.Report{}, err
	}
	start := time.Now()
	r, err := readReport(ref.Locator)
	metrics.RecordArchiveReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordRecordUnreadable()
		return model.Report{}, fmt.Errorf("%w: %s: %w", ErrRecordUnreadable, ref.ID, err)
	}
	return r, nil
}

// Latest reads the team's latest.json pointer.
func (s *Store) Latest(ctx context.Context, teamID string) (model.Report, error) {
	if err := ctx.Err(); err != nil {
		return model.Report{}, err
	}
	dir, err := s.teamDir(teamID)
	if err != nil {
		return model.Report{}, err
	}
	r, err := readReport(filepath.Join(dir, latestName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return model.Report{}, fmt.Errorf("%w: %s", ErrArchiveUnavailable, teamID)
	case err != nil:
		return model.Report{}, fmt.Errorf("%w: %s/%s: %w", ErrRecordUnreadable, teamID, latestName, err)
	}
	return r, nil
}

// Teams lists the team ids that have an archive directory.
func (s *Store) Teams(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive root: %w", err)
	}
	teams := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && ValidateTeamID(e.Name()) == nil && !strings.HasPrefix(e.Name(), ".") {
			teams = append(teams, e.Name())
		}
	}
	sort.Strings(teams)
	return teams, nil
}

// recordBody shadows the report timestamp so that zone-less ISO stamps from
// older writers decode too.
type recordBody struct {
	model.Report
	Timestamp string `json:"timestamp"`
}

// naiveLayout is an ISO 8601 stamp without a zone; it is read as UTC.
const naiveLayout = "2006-01-02T15:04:05.999999999"

func readReport(path string) (model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Report{}, err
	}
	var body recordBody
	if err := json.Unmarshal(data, &body); err != nil {
		return model.Report{}, err
	}
	ts, err := parseTimestamp(body.Timestamp)
	if err != nil {
		return model.Report{}, err
	}
	r := body.Report
	r.SubmittedAt = ts
	return r, nil
}

func parseTimestamp(v string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(naiveLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return ts, nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func recordID(ts time.Time, suffix string) string {
	stamp := fmt.Sprintf("%s_%03d", ts.Format(stampLayout), ts.Nanosecond()/int(time.Millisecond))
	if suffix == "" {
		return stamp
	}
	return stamp + "_" + suffix
}

// isRecordName selects regular JSON files other than latest.json and
// in-flight temp files.
func isRecordName(e fs.DirEntry) bool {
	name := e.Name()
	return e.Type().IsRegular() &&
		strings.HasSuffix(name, recordExt) &&
		name != latestName &&
		!strings.HasPrefix(name, ".")
}

// parseRecordName accepts "<stamp>.json" and "<stamp>_<id>.json".
func parseRecordName(name string) (model.RecordRef, bool) {
	id := strings.TrimSuffix(name, recordExt)
	if len(id) < stampLen {
		return model.RecordRef{}, false
	}
	stamp, rest := id[:stampLen], id[stampLen:]
	if rest != "" && (rest[0] != '_' || len(rest) == 1) {
		return model.RecordRef{}, false
	}
	if stamp[len(stampLayout)] != '_' {
		return model.RecordRef{}, false
	}
	ts, err := time.ParseInLocation(stampLayout, stamp[:len(stampLayout)], time.UTC)
	if err != nil {
		return model.RecordRef{}, false
	}
	ms, err := strconv.Atoi(stamp[len(stampLayout)+1:])
	if err != nil || ms < 0 {
		return model.RecordRef{}, false
	}
	return model.RecordRef{ID: id, Timestamp: ts.Add(time.Duration(ms) * time.Millisecond)}, true
}
