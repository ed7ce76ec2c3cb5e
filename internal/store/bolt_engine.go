package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/huangsam/autoindex/schema"
	bolt "go.etcd.io/bbolt"
)

// jobsBySourceBucket maps a source id to the id of its open job.
const jobsBySourceBucket = "index_jobs_by_source"

// boltEngine stores everything in one bbolt file.
// Windows live in a nested bucket per source keyed by the ordered encoding of From.
type boltEngine struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the bbolt file at path and returns a Service on top of it.
func NewBoltStore(path string, opts ...Option) (*Service, error) {
	if path == "" {
		path = GetBoltFilePath()
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store at %q: %w. Ensure the directory is writable", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range append(allTables, jobsBySourceBucket) {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return newService(&boltEngine{db: db}, opts...), nil
}

func (e *boltEngine) backend() schema.DatabaseBackend { return schema.BoltBackend }

// update relies on bbolt allowing a single writer at a time.
func (e *boltEngine) update(ctx context.Context, _ string, fn func(tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.db.Update(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

func (e *boltEngine) view(ctx context.Context, fn func(tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.db.View(func(btx *bolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

func (e *boltEngine) tableSizes(_ context.Context) (map[string]int64, error) {
	sizes := make(map[string]int64, len(allTables))
	err := e.db.View(func(tx *bolt.Tx) error {
		for _, name := range allTables {
			sizes[name] = int64(tx.Bucket([]byte(name)).Stats().KeyN)
		}
		// Nested per-source buckets count as keys of the parent; count their windows instead.
		var windows int64
		err := tx.Bucket([]byte(windowsTable)).ForEachBucket(func(k []byte) error {
			windows += int64(tx.Bucket([]byte(windowsTable)).Bucket(k).Stats().KeyN)
			return nil
		})
		sizes[windowsTable] = windows
		return err
	})
	return sizes, err
}

func (e *boltEngine) close() error {
	return e.db.Close()
}

// encodeInt maps an int64 to 8 bytes that sort in numeric order.
func encodeInt(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v)^(1<<63))
	return b
}

func decodeInt(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) bucket(name string) *bolt.Bucket {
	return t.tx.Bucket([]byte(name))
}

func (t *boltTx) loadTracker(sourceID string) (*schema.Tracker, error) {
	tr := schema.NewTracker(sourceID)
	if v := t.bucket(boundsTable).Get([]byte(sourceID)); v != nil {
		b := schema.Window{From: decodeInt(v[:8]), To: decodeInt(v[8:16])}
		tr.Bounds = &b
	}
	windows := t.bucket(windowsTable).Bucket([]byte(sourceID))
	if windows == nil {
		return tr, nil
	}
	err := windows.ForEach(func(k, v []byte) error {
		tr.Windows = append(tr.Windows, schema.Window{From: decodeInt(k), To: decodeInt(v)})
		return nil
	})
	return tr, err
}

func (t *boltTx) insertWindow(sourceID string, w schema.Window) error {
	windows, err := t.bucket(windowsTable).CreateBucketIfNotExists([]byte(sourceID))
	if err != nil {
		return err
	}
	return windows.Put(encodeInt(w.From), encodeInt(w.To))
}

func (t *boltTx) deleteWindows(sourceID string, ws []schema.Window) error {
	windows := t.bucket(windowsTable).Bucket([]byte(sourceID))
	if windows == nil {
		return nil
	}
	for _, w := range ws {
		if err := windows.Delete(encodeInt(w.From)); err != nil {
			return err
		}
	}
	return nil
}

func (t *boltTx) clearWindows(sourceID string) error {
	err := t.bucket(windowsTable).DeleteBucket([]byte(sourceID))
	if err == bolt.ErrBucketNotFound {
		return nil
	}
	return err
}

func (t *boltTx) putBounds(sourceID string, b schema.Window) error {
	return t.bucket(boundsTable).Put([]byte(sourceID), append(encodeInt(b.From), encodeInt(b.To)...))
}

func (t *boltTx) jobBySource(sourceID string) (*schema.IndexJob, error) {
	id := t.bucket(jobsBySourceBucket).Get([]byte(sourceID))
	if id == nil {
		return nil, nil
	}
	return t.job(string(id))
}

func (t *boltTx) job(jobID string) (*schema.IndexJob, error) {
	v := t.bucket(jobsTable).Get([]byte(jobID))
	if v == nil {
		return nil, schema.ErrJobNotFound
	}
	var j schema.IndexJob
	if err := json.Unmarshal(v, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return &j, nil
}

func (t *boltTx) listJobs() ([]schema.IndexJob, error) {
	var out []schema.IndexJob
	err := t.bucket(jobsTable).ForEach(func(k, v []byte) error {
		var j schema.IndexJob
		if err := json.Unmarshal(v, &j); err != nil {
			return fmt.Errorf("decode job %s: %w", k, err)
		}
		out = append(out, j)
		return nil
	})
	sortJobs(out)
	return out, err
}

func (t *boltTx) putJob(j schema.IndexJob) error {
	v, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return t.bucket(jobsTable).Put([]byte(j.JobID), v)
}

func (t *boltTx) insertJob(j schema.IndexJob) error {
	bySource := t.bucket(jobsBySourceBucket)
	if bySource.Get([]byte(j.SourceID)) != nil {
		return fmt.Errorf("source %s already has an open job", j.SourceID)
	}
	if err := bySource.Put([]byte(j.SourceID), []byte(j.JobID)); err != nil {
		return err
	}
	return t.putJob(j)
}

func (t *boltTx) setJobStarted(jobID string, startedAt int64) error {
	j, err := t.job(jobID)
	if err != nil {
		return err
	}
	j.StartedAt = startedAt
	return t.putJob(*j)
}

func (t *boltTx) deleteJob(jobID string) error {
	j, err := t.job(jobID)
	if err == schema.ErrJobNotFound {
		return nil
	} else if err != nil {
		return err
	}
	if err := t.bucket(jobsBySourceBucket).Delete([]byte(j.SourceID)); err != nil {
		return err
	}
	return t.bucket(jobsTable).Delete([]byte(jobID))
}

func (t *boltTx) listSources() ([]schema.TrackedSource, error) {
	var out []schema.TrackedSource
	err := t.bucket(sourcesTable).ForEach(func(k, v []byte) error {
		var s schema.TrackedSource
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("decode source %s: %w", k, err)
		}
		out = append(out, s)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (t *boltTx) source(id string) (schema.TrackedSource, error) {
	var s schema.TrackedSource
	v := t.bucket(sourcesTable).Get([]byte(id))
	if v == nil {
		return s, schema.ErrSourceNotFound
	}
	if err := json.Unmarshal(v, &s); err != nil {
		return s, fmt.Errorf("decode source %s: %w", id, err)
	}
	return s, nil
}

func (t *boltTx) putSource(s schema.TrackedSource) error {
	v, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return t.bucket(sourcesTable).Put([]byte(s.ID), v)
}

func (t *boltTx) deleteSource(id string) error {
	return t.bucket(sourcesTable).Delete([]byte(id))
}
