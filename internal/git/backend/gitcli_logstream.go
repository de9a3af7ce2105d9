package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/thiagokokada/gitlanes/internal/commitstore"
)

// NUL-terminated records; commit messages cannot contain NUL.
const logFormat = "%H%n%h%n%P%n%T%n%an%n%ae%n%aD%n%s%n%B%x00"

// Line positions inside one record. Everything from fieldMessage on is the raw
// message body, which may span several lines.
const (
	fieldHash = iota
	fieldShortHash
	fieldParents
	fieldTree
	fieldAuthorName
	fieldAuthorEmail
	fieldAuthorDate
	fieldSubject
	fieldMessage
)

const maxRecordSize = 64 << 20

type gitLogStream struct {
	args   []string
	cancel context.CancelFunc
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	sc     *bufio.Scanner

	waitOnce sync.Once
	waitErr  error
	drained  bool
}

func (g *gitCLI) Log(ctx context.Context, args []string) (LogStream, error) {
	if g == nil || g.path == "" {
		return nil, fmt.Errorf("repository root not set")
	}
	if err := CheckLogArgs(args); err != nil {
		return nil, err
	}
	logArgs := append([]string{
		"--no-pager",
		"log",
		"--no-color",
		"--no-decorate",
		"--no-patch",
		"--pretty=tformat:" + logFormat,
	}, args...)
	// Everything before "--" is a revision, never a path.
	logArgs = append(logArgs, "--")

	ctx, cancel := context.WithCancel(ctx)
	s := &gitLogStream{args: logArgs, cancel: cancel}
	s.cmd = g.command(ctx, logArgs...)
	s.cmd.Stderr = &s.stderr
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("git log stdout: %w", err)
	}
	s.stdout = stdout
	s.sc = bufio.NewScanner(stdout)
	s.sc.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	s.sc.Split(splitRecords)
	if err := s.cmd.Start(); err != nil {
		cancel()
		_ = stdout.Close()
		return nil, s.commandError(err)
	}
	return s, nil
}

// splitRecords is a bufio.SplitFunc yielding NUL-terminated records. The
// newline git prints after the last record is dropped.
func splitRecords(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return i + 1, data[:i], nil
	}
	if !atEOF {
		return 0, nil, nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return len(data), nil, nil
	}
	return len(data), data, nil
}

func (s *gitLogStream) Next() (*commitstore.Record, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return nil, fmt.Errorf("read git log: %w", err)
		}
		s.drained = true
		if err := s.wait(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	// tformat separates records with a newline, so all but the first start
	// with one.
	rec := bytes.TrimLeft(s.sc.Bytes(), "\r\n")
	if len(rec) == 0 {
		return nil, fmt.Errorf("unexpected empty git log record")
	}
	return parseGitLogRecord(rec)
}

func (s *gitLogStream) Close() error {
	s.cancel()
	_ = s.stdout.Close()
	err := s.wait()
	if !s.drained {
		// Closed before EOF: the kill from cancel is expected.
		return nil
	}
	return err
}

func (s *gitLogStream) wait() error {
	s.waitOnce.Do(func() {
		if err := s.cmd.Wait(); err != nil {
			s.waitErr = s.commandError(err)
		}
	})
	return s.waitErr
}

func (s *gitLogStream) commandError(err error) error {
	return &CommandError{
		Op:     "git log",
		Args:   s.args,
		Stderr: strings.TrimSpace(s.stderr.String()),
		Err:    err,
	}
}

func parseGitLogRecord(rec []byte) (*commitstore.Record, error) {
	fields := strings.SplitN(string(rec), "\n", fieldMessage+1)
	if len(fields) < fieldMessage {
		return nil, fmt.Errorf("unexpected git log record: got %d lines", len(fields))
	}
	hash := strings.TrimSpace(fields[fieldHash])
	if hash == "" {
		return nil, fmt.Errorf("missing commit hash")
	}
	r := &commitstore.Record{
		ID:           hash,
		ShortID:      strings.TrimSpace(fields[fieldShortHash]),
		ParentIDs:    strings.Fields(fields[fieldParents]),
		TreeID:       strings.TrimSpace(fields[fieldTree]),
		AuthorName:   fields[fieldAuthorName],
		AuthorEmail:  fields[fieldAuthorEmail],
		AuthorDate:   fields[fieldAuthorDate],
		ShortMessage: fields[fieldSubject],
	}
	if len(fields) > fieldMessage {
		r.FullMessage = strings.TrimRight(fields[fieldMessage], "\n")
	}
	return r, nil
}
