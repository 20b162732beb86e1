// Package session holds the state of one chat over a set of uploaded PDFs:
// the uploads, the conversation, and the index and engine built from them.
//
// A Session is not safe for concurrent use. Callers run one action at a
// time, as the shells in this repository do.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/mediassist/internal/models"
	"github.com/xhad/mediassist/internal/types"
)

type State int

const (
	StateEmpty State = iota
	StateProcessing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateProcessing:
		return "processing"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// documentSeparator joins the text of consecutive uploads before splitting.
const documentSeparator = "\n\n"

type Deps struct {
	Extractor     types.Extractor
	Splitter      types.Splitter
	IndexBuilder  types.IndexBuilder
	EngineFactory types.EngineFactory
	Clock         func() time.Time
}

type Options struct {
	TopK int
}

type ProcessReport struct {
	Files   int
	Skipped []*types.FileError
	Chunks  int
}

type Session struct {
	id      string
	deps    Deps
	opts    Options
	state   State
	uploads []models.Upload
	history []models.ConversationEntry
	index   types.Index
	engine  types.AnswerEngine
}

func New(deps Deps, opts Options) *Session {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	return &Session{
		id:   uuid.NewString(),
		deps: deps,
		opts: opts,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

// AddUpload queues a PDF for the next Process call.
func (s *Session) AddUpload(upload models.Upload) error {
	if !isPDF(upload.Name) {
		return &types.FileError{Name: upload.Name, Err: types.ErrUnsupportedFile}
	}
	s.uploads = append(s.uploads, upload)
	return nil
}

// SetUploads replaces the queued uploads. Nothing changes if any of them is
// not a PDF.
func (s *Session) SetUploads(uploads []models.Upload) error {
	for _, u := range uploads {
		if !isPDF(u.Name) {
			return &types.FileError{Name: u.Name, Err: types.ErrUnsupportedFile}
		}
	}
	s.uploads = append([]models.Upload(nil), uploads...)
	return nil
}

func (s *Session) Uploads() []models.Upload {
	return append([]models.Upload(nil), s.uploads...)
}

func (s *Session) History() []models.ConversationEntry {
	return append([]models.ConversationEntry(nil), s.history...)
}

// Reset returns the session to Empty and forgets uploads and history.
func (s *Session) Reset() {
	s.state = StateEmpty
	s.uploads = nil
	s.history = nil
	s.index = nil
	s.engine = nil
}

// Process extracts, splits and indexes the queued uploads and configures a
// new answer engine. The previous index and engine are discarded before any
// work starts. A file that fails to parse is skipped and reported; the
// batch fails only when no text is left.
func (s *Session) Process(ctx context.Context) (ProcessReport, error) {
	s.state = StateProcessing
	s.index = nil
	s.engine = nil

	report, index, engine, err := s.process(ctx)
	if err != nil {
		s.state = StateEmpty
		return report, err
	}

	s.index = index
	s.engine = engine
	s.state = StateReady
	return report, nil
}

func (s *Session) process(ctx context.Context) (ProcessReport, types.Index, types.AnswerEngine, error) {
	report := ProcessReport{Files: len(s.uploads)}
	if len(s.uploads) == 0 {
		return report, nil, nil, types.ErrNoUploads
	}

	texts := make([]string, 0, len(s.uploads))
	for _, u := range s.uploads {
		if err := ctx.Err(); err != nil {
			return report, nil, nil, err
		}
		text, err := s.deps.Extractor.Extract(bytes.NewReader(u.Data), int64(len(u.Data)))
		if err != nil {
			report.Skipped = append(report.Skipped, &types.FileError{Name: u.Name, Err: err})
			continue
		}
		texts = append(texts, text)
	}

	chunks, err := s.deps.Splitter.Split(strings.Join(texts, documentSeparator))
	if err != nil {
		return report, nil, nil, fmt.Errorf("failed to split text: %w", err)
	}
	if len(strings.TrimSpace(strings.Join(chunks, ""))) == 0 {
		errs := []error{types.ErrNoText}
		for _, fe := range report.Skipped {
			errs = append(errs, fe)
		}
		return report, nil, nil, errors.Join(errs...)
	}
	report.Chunks = len(chunks)

	index, err := s.deps.IndexBuilder.Build(ctx, chunks)
	if err != nil {
		return report, nil, nil, fmt.Errorf("failed to build index: %w", err)
	}

	engine, err := s.deps.EngineFactory()
	if err != nil {
		return report, nil, nil, fmt.Errorf("failed to configure chat engine: %w", err)
	}

	return report, index, engine, nil
}

// Ask records the question and, once the session is Ready, answers it from
// the top chunks of the index. The reply is appended only on success.
func (s *Session) Ask(ctx context.Context, question string) (models.ConversationEntry, error) {
	s.append(models.RoleUser, question)

	if s.state != StateReady || s.index == nil || s.engine == nil {
		return models.ConversationEntry{}, types.ErrNotReady
	}

	chunks, err := s.index.Search(ctx, question, s.opts.TopK)
	if err != nil {
		return models.ConversationEntry{}, fmt.Errorf("failed to search documents: %w", err)
	}

	answer, err := s.engine.Answer(ctx, question, chunks)
	if err != nil {
		return models.ConversationEntry{}, err
	}

	return s.append(models.RoleAssistant, answer.Text), nil
}

func (s *Session) append(role models.Role, text string) models.ConversationEntry {
	entry := models.ConversationEntry{
		ID:   uuid.NewString(),
		Role: role,
		Text: text,
		Time: s.deps.Clock(),
	}
	s.history = append(s.history, entry)
	return entry
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
