package runlog

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// maxLine bounds one encoded record.
const maxLine = 16 << 20

// JSONLStore stores runs in a JSONL file.
type JSONLStore struct {
	path string
	mu   sync.Mutex
}

func NewJSONLStore(path string) (*JSONLStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if cerr := f.Close(); cerr != nil {
		return nil, cerr
	}
	return &JSONLStore{path: path}, nil
}

func (s *JSONLStore) Append(_ context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return json.NewEncoder(f).Encode(rec)
}

func (s *JSONLStore) Query(_ context.Context, q RunQuery) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []RunRecord
	err := scanFile(s.path, func(r RunRecord) {
		if q.Match(r) {
			res = append(res, r)
		}
	})
	if err != nil {
		return nil, err
	}
	return q.finish(res), nil
}

func (s *JSONLStore) Get(ctx context.Context, id string) (RunRecord, error) {
	recs, err := s.Query(ctx, RunQuery{})
	if err != nil {
		return RunRecord{}, err
	}
	return find(recs, id)
}

func (s *JSONLStore) Close() error { return nil }

func scanFile(path string, fn func(RunRecord)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return scan(f, fn)
}

// scan skips lines that do not decode.
func scan(r io.Reader, fn func(RunRecord)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		var rec RunRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		fn(rec)
	}
	return scanner.Err()
}

func find(recs []RunRecord, id string) (RunRecord, error) {
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return RunRecord{}, ErrNotFound
}
