package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/benchboard/internal/domain/model"
	"github.com/okian/benchboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var epoch = time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.UTC)

func sampleReport(team string, at time.Time, qps float64) model.Report {
	return model.Report{
		TeamID:      team,
		TeamName:    "Team " + team,
		SubmittedAt: at,
		Stats: model.Stats{
			TotalSent:          100,
			TotalOps:           100,
			PerformanceMetrics: model.PerformanceMetrics{AvgCompletedQPS: qps},
			Operations:         model.Operations{SensorData: &model.OperationStat{Operations: 100}},
			LatencyAnalysis: model.LatencyAnalysis{SensorData: &model.LatencyDistribution{
				Avg: 4, Buckets: []int64{0, 10, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			}},
		},
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%08d", n)
	}
}

func TestAppendAndList(t *testing.T) {
	Convey("Given an empty archive", t, func() {
		ctx := context.Background()
		root := t.TempDir()
		s := New(root, WithIDGenerator(sequentialIDs()))

		Convey("When records are appended out of order", func() {
			_, err := s.Append(ctx, sampleReport("t1", epoch.Add(2*time.Second), 10))
			So(err, ShouldBeNil)
			_, err = s.Append(ctx, sampleReport("t1", epoch, 20))
			So(err, ShouldBeNil)
			_, err = s.Append(ctx, sampleReport("t1", epoch.Add(time.Second), 30))
			So(err, ShouldBeNil)

			refs, err := s.List(ctx, "t1")

			Convey("Then listing is newest first", func() {
				So(err, ShouldBeNil)
				So(len(refs), ShouldEqual, 3)
				So(refs[0].Timestamp, ShouldEqual, epoch.Add(2*time.Second))
				So(refs[2].Timestamp, ShouldEqual, epoch)
			})

			Convey("Then the file name carries the millisecond stamp", func() {
				So(refs[2].ID, ShouldEqual, "20240301_123045_123_00000002")
				_, err := os.Stat(filepath.Join(root, "t1", refs[2].ID+".json"))
				So(err, ShouldBeNil)
			})

			Convey("Then latest.json holds the last appended report", func() {
				latest, err := s.Latest(ctx, "t1")
				So(err, ShouldBeNil)
				So(latest.Stats.CompletedQPS(), ShouldEqual, 30.0)
			})

			Convey("Then each record loads back", func() {
				r, err := s.Load(ctx, refs[1])
				So(err, ShouldBeNil)
				So(r.TeamName, ShouldEqual, "Team t1")
				So(r.SubmittedAt.Equal(epoch.Add(time.Second)), ShouldBeTrue)
			})
		})

		Convey("When two records share a millisecond", func() {
			_, _ = s.Append(ctx, sampleReport("t1", epoch, 1))
			_, _ = s.Append(ctx, sampleReport("t1", epoch, 2))

			refs, err := s.List(ctx, "t1")

			Convey("Then the later id sorts first", func() {
				So(err, ShouldBeNil)
				So(refs[0].ID, ShouldEqual, "20240301_123045_123_00000002")
				So(refs[1].ID, ShouldEqual, "20240301_123045_123_00000001")
			})
		})

		Convey("When the team has no directory", func() {
			_, err := s.List(ctx, "ghost")
			So(errors.Is(err, ErrArchiveUnavailable), ShouldBeTrue)

			_, err = s.Latest(ctx, "ghost")
			So(errors.Is(err, ErrArchiveUnavailable), ShouldBeTrue)
		})

		Convey("When the team id escapes the root", func() {
			_, err := s.Append(ctx, sampleReport("../evil", epoch, 1))
			So(errors.Is(err, ErrInvalidTeamID), ShouldBeTrue)
		})
	})
}

func TestAppendOutOfOrderKeepsNewestLatest(t *testing.T) {
	Convey("Given a newer report archived before an older one", t, func() {
		ctx := context.Background()
		s := New(t.TempDir())
		_, err := s.Append(ctx, sampleReport("t1", epoch.Add(time.Second), 2))
		So(err, ShouldBeNil)
		_, err = s.Append(ctx, sampleReport("t1", epoch, 1))
		So(err, ShouldBeNil)

		Convey("Then latest.json still holds the newer report", func() {
			latest, err := s.Latest(ctx, "t1")
			So(err, ShouldBeNil)
			So(latest.SubmittedAt.Equal(epoch.Add(time.Second)), ShouldBeTrue)
			So(latest.Stats.CompletedQPS(), ShouldEqual, 2.0)
		})

		Convey("Then both records are archived", func() {
			refs, err := s.List(ctx, "t1")
			So(err, ShouldBeNil)
			So(len(refs), ShouldEqual, 2)
		})
	})
}

func TestListSkipsForeignEntries(t *testing.T) {
	Convey("Given a team directory with foreign files", t, func() {
		ctx := context.Background()
		root := t.TempDir()
		s := New(root)
		_, err := s.Append(ctx, sampleReport("t1", epoch, 1))
		So(err, ShouldBeNil)

		dir := filepath.Join(root, "t1")
		So(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{}"), 0o644), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("{"), 0o644), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "20240101_000000_000.json"), []byte("{}"), 0o644), ShouldBeNil)

		refs, err := s.List(ctx, "t1")

		Convey("Then only record names are listed, including suffix-less ones", func() {
			So(err, ShouldBeNil)
			So(len(refs), ShouldEqual, 2)
			So(refs[1].ID, ShouldEqual, "20240101_000000_000")
		})
	})
}

func TestLoadZonelessRecord(t *testing.T) {
	Convey("Given a record with a zone-less ISO timestamp and no id suffix", t, func() {
		ctx := context.Background()
		root := t.TempDir()
		s := New(root)
		_, err := s.Append(ctx, sampleReport("t1", epoch, 1))
		So(err, ShouldBeNil)

		body := `{
  "team_id": "t1",
  "team_name": "Team t1",
  "timestamp": "2024-04-01T10:00:00.123456",
  "stats": {"totalSent": 10, "totalOps": 10, "performanceMetrics": {"avgCompletedQPS": 999}}
}`
		path := filepath.Join(root, "t1", "20240401_100000_123.json")
		So(os.WriteFile(path, []byte(body), 0o644), ShouldBeNil)

		refs, err := s.List(ctx, "t1")
		So(err, ShouldBeNil)
		So(len(refs), ShouldEqual, 2)

		Convey("Then every listed record loads", func() {
			for _, ref := range refs {
				_, err := s.Load(ctx, ref)
				So(err, ShouldBeNil)
			}
		})

		Convey("Then the timestamp is read as UTC", func() {
			r, err := s.Load(ctx, refs[0])
			So(err, ShouldBeNil)
			So(r.SubmittedAt.Equal(time.Date(2024, 4, 1, 10, 0, 0, 123_456_000, time.UTC)), ShouldBeTrue)
			So(r.Stats.CompletedQPS(), ShouldEqual, 999.0)
		})

		Convey("Then a missing timestamp is unreadable", func() {
			So(os.WriteFile(path, []byte(`{"team_id":"t1"}`), 0o644), ShouldBeNil)
			_, err := s.Load(ctx, refs[0])
			So(errors.Is(err, ErrRecordUnreadable), ShouldBeTrue)
		})
	})
}

func TestLoadCorruptRecord(t *testing.T) {
	Convey("Given a corrupt record", t, func() {
		ctx := context.Background()
		root := t.TempDir()
		s := New(root)
		dir := filepath.Join(root, "t1")
		So(os.MkdirAll(dir, 0o755), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "20240101_000000_000_bad.json"), []byte("{not json"), 0o644), ShouldBeNil)

		refs, err := s.List(ctx, "t1")
		So(err, ShouldBeNil)
		So(len(refs), ShouldEqual, 1)

		_, err = s.Load(ctx, refs[0])

		Convey("Then the error is RecordUnreadable", func() {
			So(errors.Is(err, ErrRecordUnreadable), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "20240101_000000_000_bad")
		})
	})
}

func TestFingerprint(t *testing.T) {
	Convey("Given a team archive", t, func() {
		ctx := context.Background()
		root := t.TempDir()
		s := New(root)

		Convey("When the directory is missing", func() {
			fp, n, err := s.Fingerprint(ctx, "t1")
			So(err, ShouldBeNil)
			So(fp, ShouldEqual, model.Fingerprint(0))
			So(n, ShouldEqual, 0)
		})

		Convey("When nothing changes between calls", func() {
			_, _ = s.Append(ctx, sampleReport("t1", epoch, 1))
			a, n, err := s.Fingerprint(ctx, "t1")
			So(err, ShouldBeNil)
			b, _, _ := s.Fingerprint(ctx, "t1")
			So(a, ShouldEqual, b)
			So(n, ShouldEqual, 1)

			Convey("Then a new record changes it", func() {
				_, _ = s.Append(ctx, sampleReport("t1", epoch.Add(time.Second), 2))
				c, n, _ := s.Fingerprint(ctx, "t1")
				So(c, ShouldNotEqual, a)
				So(n, ShouldEqual, 2)
			})

			Convey("Then touching a record changes it", func() {
				refs, _ := s.List(ctx, "t1")
				later := time.Now().Add(time.Hour)
				So(os.Chtimes(refs[0].Locator, later, later), ShouldBeNil)
				c, _, _ := s.Fingerprint(ctx, "t1")
				So(c, ShouldNotEqual, a)
			})
		})

		Convey("When enumeration order differs", func() {
			x := []fileStamp{{"a.json", 1}, {"b.json", 2}, {"c.json", 3}}
			y := []fileStamp{{"c.json", 3}, {"a.json", 1}, {"b.json", 2}}
			So(digest(x), ShouldEqual, digest(y))
		})
	})
}

func TestTeamsAndValidation(t *testing.T) {
	Convey("Given several team archives", t, func() {
		ctx := context.Background()
		s := New(t.TempDir())
		_, _ = s.Append(ctx, sampleReport("beta", epoch, 1))
		_, _ = s.Append(ctx, sampleReport("alpha", epoch, 1))

		teams, err := s.Teams(ctx)
		So(err, ShouldBeNil)
		So(teams, ShouldResemble, []string{"alpha", "beta"})

		Convey("Then a missing root lists no teams", func() {
			teams, err := New(filepath.Join(t.TempDir(), "nope")).Teams(ctx)
			So(err, ShouldBeNil)
			So(len(teams), ShouldEqual, 0)
		})

		Convey("Then team ids are single path segments", func() {
			So(ValidateTeamID("team-1"), ShouldBeNil)
			for _, bad := range []string{"", ".", "..", "a/b", `a\b`} {
				So(errors.Is(ValidateTeamID(bad), ErrInvalidTeamID), ShouldBeTrue)
			}
		})
	})
}
