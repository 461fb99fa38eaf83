package archive

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/benchboard/internal/domain/model"
)

type fileStamp struct {
	name  string
	mtime int64
}

// Fingerprint hashes the sorted (name, mtime) pairs of the team's records.
// Only metadata is read. A missing directory has the zero fingerprint.
func (s *Store) Fingerprint(ctx context.Context, teamID string) (model.Fingerprint, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	dir, err := s.teamDir(teamID)
	if err != nil {
		return 0, 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("read team dir: %w", err)
	}

	stamps := make([]fileStamp, 0, len(entries))
	for _, e := range entries {
		if !isRecordName(e) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		stamps = append(stamps, fileStamp{name: e.Name(), mtime: info.ModTime().UnixNano()})
	}
	return digest(stamps), len(stamps), nil
}

func digest(stamps []fileStamp) model.Fingerprint {
	if len(stamps) == 0 {
		return 0
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].name < stamps[j].name })

	h := xxhash.New()
	var buf [8]byte
	for _, st := range stamps {
		_, _ = h.WriteString(st.name)
		_, _ = h.Write([]byte{0})
		binary.BigEndian.PutUint64(buf[:], uint64(st.mtime))
		_, _ = h.Write(buf[:])
	}
	return model.Fingerprint(h.Sum64())
}
