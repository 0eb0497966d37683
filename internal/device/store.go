package device

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"card-quiz/internal/domain"
	"github.com/rs/zerolog/log"
)

// StoredRun is what the durable medium holds for the current run.
type StoredRun struct {
	Category   domain.CategoryID
	Answers    domain.Answers
	Elapsed    int
	HasElapsed bool
}

// AnswerStore is the device's durable record of the run in progress.
// Every failure is wrapped with domain.ErrStorage.
type AnswerStore interface {
	// Reset starts a new run for category, dropping previous answers and time.
	Reset(category domain.CategoryID) error
	// Record appends one answer.
	Record(q domain.QuestionNumber, a domain.Answer) error
	Answers() (domain.Answers, error)
	SaveElapsed(seconds int) error
	// MarkSent forgets the category so a delivered run is not restored again.
	MarkSent() error
	Snapshot() (StoredRun, error)
}

const (
	answersFile  = "answers.txt"
	timerFile    = "timer_log.txt"
	categoryFile = "category.txt"
)

// FileAnswerStore keeps the run on a mounted card in the layout the devices
// have always used: answers.txt holds "<q>: <A>" lines, timer_log.txt holds
// "Time: <n> seconds" and category.txt the category number.
type FileAnswerStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileAnswerStore(dir string) (*FileAnswerStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErr("create %s: %w", dir, err)
	}
	return &FileAnswerStore{dir: dir}, nil
}

func (s *FileAnswerStore) Reset(category domain.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := removeIfExists(s.path(timerFile)); err != nil {
		return err
	}
	if err := os.WriteFile(s.path(answersFile), nil, 0o644); err != nil {
		return storageErr("truncate answers: %w", err)
	}
	if err := os.WriteFile(s.path(categoryFile), []byte(strconv.Itoa(int(category))+"\n"), 0o644); err != nil {
		return storageErr("write category: %w", err)
	}
	return nil
}

func (s *FileAnswerStore) Record(q domain.QuestionNumber, a domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(answersFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return storageErr("open answers: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d: %s\n", q, a); err != nil {
		_ = f.Close()
		return storageErr("append answer: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return storageErr("sync answers: %w", err)
	}
	if err := f.Close(); err != nil {
		return storageErr("close answers: %w", err)
	}
	return nil
}

func (s *FileAnswerStore) Answers() (domain.Answers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAnswers()
}

func (s *FileAnswerStore) SaveElapsed(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path(timerFile), []byte(fmt.Sprintf("Time: %d seconds\n", seconds)), 0o644); err != nil {
		return storageErr("write timer log: %w", err)
	}
	return nil
}

func (s *FileAnswerStore) MarkSent() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeIfExists(s.path(categoryFile))
}

func (s *FileAnswerStore) Snapshot() (StoredRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var run StoredRun
	raw, err := readOptional(s.path(categoryFile))
	if err != nil {
		return StoredRun{}, err
	}
	if n, perr := strconv.Atoi(strings.TrimSpace(string(raw))); perr == nil && domain.CategoryID(n).Valid() {
		run.Category = domain.CategoryID(n)
	}

	if run.Answers, err = s.readAnswers(); err != nil {
		return StoredRun{}, err
	}

	raw, err = readOptional(s.path(timerFile))
	if err != nil {
		return StoredRun{}, err
	}
	var seconds int
	if _, perr := fmt.Sscanf(strings.TrimSpace(string(raw)), "Time: %d seconds", &seconds); perr == nil && seconds >= 0 {
		run.Elapsed = seconds
		run.HasElapsed = true
	}
	return run, nil
}

// readAnswers skips malformed lines; the first answer for a question wins.
func (s *FileAnswerStore) readAnswers() (domain.Answers, error) {
	raw, err := readOptional(s.path(answersFile))
	if err != nil {
		return nil, err
	}
	answers := domain.Answers{}
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		qs, as, ok := strings.Cut(line, ":")
		if !ok {
			log.Warn().Str("line", line).Msg("skipping malformed answer line")
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(qs))
		q := domain.QuestionNumber(n)
		if err != nil || n < 0 || n > 255 || !q.Valid() {
			log.Warn().Str("line", line).Msg("skipping malformed answer line")
			continue
		}
		a, err := domain.ParseAnswer(as)
		if err != nil {
			log.Warn().Str("line", line).Msg("skipping malformed answer line")
			continue
		}
		if _, seen := answers[q]; !seen {
			answers[q] = a
		}
	}
	return answers, nil
}

func (s *FileAnswerStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageErr("remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

func storageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %w", domain.ErrStorage, fmt.Errorf(format, args...))
}

// MemoryAnswerStore keeps the run in process memory.
type MemoryAnswerStore struct {
	mu  sync.Mutex
	run StoredRun
	// Fail makes every call return a storage error.
	Fail bool
}

func NewMemoryAnswerStore() *MemoryAnswerStore {
	return &MemoryAnswerStore{run: StoredRun{Answers: domain.Answers{}}}
}

func (s *MemoryAnswerStore) Reset(category domain.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return storageErr("memory store failing")
	}
	s.run = StoredRun{Category: category, Answers: domain.Answers{}}
	return nil
}

func (s *MemoryAnswerStore) Record(q domain.QuestionNumber, a domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return storageErr("memory store failing")
	}
	if _, seen := s.run.Answers[q]; !seen {
		s.run.Answers[q] = a
	}
	return nil
}

func (s *MemoryAnswerStore) Answers() (domain.Answers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, storageErr("memory store failing")
	}
	return s.run.Answers.Clone(), nil
}

func (s *MemoryAnswerStore) SaveElapsed(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return storageErr("memory store failing")
	}
	s.run.Elapsed = seconds
	s.run.HasElapsed = true
	return nil
}

func (s *MemoryAnswerStore) MarkSent() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return storageErr("memory store failing")
	}
	s.run.Category = domain.CategoryUnassigned
	return nil
}

func (s *MemoryAnswerStore) Snapshot() (StoredRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return StoredRun{}, storageErr("memory store failing")
	}
	run := s.run
	run.Answers = s.run.Answers.Clone()
	return run, nil
}
