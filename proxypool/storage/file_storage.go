package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"proxy_harvester/internal/shared/logger"
	"proxy_harvester/proxypool/model"
)

// Sink 接口定义了验证结果的持久化行为。
type Sink interface {
	Append(c model.Candidate, v model.Verdict) error
}

type resultFile struct {
	file *os.File
	w    *bufio.Writer
}

// ResultStore 实现了 Sink 接口，把每个结果追加到对应的纯文本文件中。
// 四个文件在 Open 时被截断为空。
type ResultStore struct {
	dir   string
	files map[string]*resultFile
	mu    sync.Mutex
}

// Open creates dir if needed and truncates the good/bad file of every protocol class.
func Open(dir string) (*ResultStore, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve results dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results dir %s: %w", absDir, err)
	}

	rs := &ResultStore{
		dir:   absDir,
		files: make(map[string]*resultFile),
	}
	for _, p := range model.Protocols {
		for _, v := range []model.Verdict{model.Good, model.Bad} {
			name := model.ResultFile(p, v)
			f, err := os.OpenFile(filepath.Join(absDir, name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				rs.Close()
				return nil, fmt.Errorf("failed to open result file %s: %w", name, err)
			}
			rs.files[name] = &resultFile{file: f, w: bufio.NewWriter(f)}
		}
	}

	l := logger.WithComponent("Harvester/Storage")
	l.Debug().Str("path", absDir).Msg("Result files truncated.")
	return rs, nil
}

// Path returns the absolute results directory.
func (rs *ResultStore) Path() string {
	return rs.dir
}

// Append writes one address line, flushes it and asks the OS to sync the file.
// A failed sync is logged and ignored; a failed write is returned.
func (rs *ResultStore) Append(c model.Candidate, v model.Verdict) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	name := model.ResultFile(c.Protocol, v)
	rf, ok := rs.files[name]
	if !ok {
		return fmt.Errorf("no result file for protocol %q", c.Protocol)
	}

	if _, err := rf.w.WriteString(c.Address + "\n"); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := rf.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", name, err)
	}
	if err := rf.file.Sync(); err != nil {
		l := logger.WithComponent("Harvester/Storage")
		l.Debug().Err(err).Str("file", name).Msg("Sync failed, continuing.")
	}
	return nil
}

// Close flushes and closes every result file, returning the first error.
func (rs *ResultStore) Close() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	var firstErr error
	for name, rf := range rs.files {
		if err := rf.w.Flush(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to flush %s: %w", name, err)
		}
		if err := rf.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", name, err)
		}
	}
	rs.files = map[string]*resultFile{}
	return firstErr
}
