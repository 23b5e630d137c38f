// internal/toolcode/parser.go

// Package toolcode recovers function calls that a model writes as a pseudo-code
// expression inside a fenced block, for example:
//
//	```tool_code
//	print(get_weather(location='Riyadh, Saudi Arabia'))
//	```
//
// A Parser performs one-shot extraction over complete text and is safe for
// concurrent use. An Assembler performs the same recovery incrementally over
// streamed deltas and belongs to exactly one generation.
package toolcode

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrEmptyMarker is returned when a Vocabulary has no opening or closing marker.
var ErrEmptyMarker = errors.New("toolcode: opening and closing markers must not be empty")

// Vocabulary is the marker set the prompt template teaches the model to emit.
type Vocabulary struct {
	// Open starts a call block, e.g. "```tool_code".
	Open string `json:"open" mapstructure:"open"`
	// Close ends a call block, e.g. "```". Its first rune is the fence character.
	Close string `json:"close" mapstructure:"close"`
	// Wrapper is the outer call stripped once before matching, e.g. "print".
	Wrapper string `json:"wrapper" mapstructure:"wrapper"`
}

// DefaultVocabulary matches the Gemma tool_code template.
var DefaultVocabulary = Vocabulary{
	Open:    "```tool_code",
	Close:   "```",
	Wrapper: "print",
}

// Fence returns the delimiter character a block body may not contain.
func (v Vocabulary) Fence() rune {
	r, _ := utf8.DecodeRuneInString(v.Close)
	return r
}

// Validate reports whether the vocabulary can be used to build a Parser.
func (v Vocabulary) Validate() error {
	if strings.TrimSpace(v.Open) == "" || strings.TrimSpace(v.Close) == "" {
		return ErrEmptyMarker
	}
	return nil
}

// Logger receives debug and error visibility from the parser.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Errorf(string, ...any) {}

// TruncatedPolicy decides what Assembler.Finish does with a block that never closed.
type TruncatedPolicy string

const (
	// TruncatedDrop discards the partial block without emitting anything.
	TruncatedDrop TruncatedPolicy = "drop"
	// TruncatedFlush emits the partial block text as content.
	TruncatedFlush TruncatedPolicy = "flush"
)

// Option configures a Parser.
type Option func(*Parser)

// WithLogger routes parser diagnostics to logger.
func WithLogger(logger Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithIDFunc replaces the call identifier generator.
func WithIDFunc(fn func() string) Option {
	return func(p *Parser) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// WithTruncatedPolicy sets the end-of-stream behavior for assemblers built by the parser.
func WithTruncatedPolicy(policy TruncatedPolicy) Option {
	return func(p *Parser) {
		if policy == TruncatedFlush {
			p.truncated = TruncatedFlush
		} else {
			p.truncated = TruncatedDrop
		}
	}
}

// Parser holds the compiled matchers for one Vocabulary. It is immutable after New.
type Parser struct {
	vocab     Vocabulary
	blockRe   *regexp.Regexp
	logger    Logger
	newID     func() string
	truncated TruncatedPolicy
}

// callPattern matches name(body) anchored to the whole string; the body may span lines.
// Names are Unicode letters, digits and underscores.
var callPattern = regexp.MustCompile(`(?s)^([\p{L}\p{N}_]+)\((.*)\)$`)

// New compiles a Parser for vocab.
func New(vocab Vocabulary, opts ...Option) (*Parser, error) {
	if err := vocab.Validate(); err != nil {
		return nil, err
	}
	fence := regexp.QuoteMeta(string(vocab.Fence()))
	pattern := regexp.QuoteMeta(vocab.Open) + `\s*([^` + fence + `]+)` + regexp.QuoteMeta(vocab.Close)
	blockRe, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile block pattern: %w", err)
	}
	p := &Parser{
		vocab:     vocab,
		blockRe:   blockRe,
		logger:    nopLogger{},
		newID:     NewCallID,
		truncated: TruncatedDrop,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// MustNew is like New but panics on an invalid vocabulary.
func MustNew(vocab Vocabulary, opts ...Option) *Parser {
	p, err := New(vocab, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Vocabulary returns the marker set the parser matches against.
func (p *Parser) Vocabulary() Vocabulary { return p.vocab }

// NewCallID returns a fresh identifier in the chat-completions tool call format.
func NewCallID() string {
	return "chatcmpl-tool-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
