// Package scriptgen asks a text-generation provider to write the addon script.
package scriptgen

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/eykd/mcaddon-go/internal/project"
)

// SystemInstruction is sent with every generation request.
const SystemInstruction = `You are an expert Minecraft Bedrock Addon Developer.
Your goal is to write high-quality JavaScript code using the '@minecraft/server' and '@minecraft/server-ui' APIs.
Only return the code itself, no explanations, no markdown backticks.

Context:
- Minecraft Bedrock Scripting API.
- Modules available: @minecraft/server, @minecraft/server-ui, @minecraft/server-admin, @minecraft/server-gametest.
- Always use 'world', 'system', 'Player', 'ItemStack', etc., correctly from the imports.
- Example import: import { world, system } from "@minecraft/server";`

// Placeholder replaces the script text when generation fails. It is a valid
// JavaScript comment so the exported pack still loads.
const Placeholder = "// Error generating code. Please try again."

const (
	// DefaultTemperature is the sampling temperature for generation requests.
	DefaultTemperature = 0.7
	// DefaultTimeout bounds a single generation request.
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrEmptyPrompt is returned for a prompt that is empty or only whitespace.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrBusy is returned when a generation is already outstanding.
	ErrBusy = errors.New("a script generation is already in progress")
)

var fence = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// StripFences removes Markdown code fence markers, including any language tag, and
// trims surrounding whitespace.
func StripFences(text string) string {
	return strings.TrimSpace(fence.ReplaceAllString(text, ""))
}

// Generator turns prompts into script text.
type Generator struct {
	provider    Provider
	model       string
	temperature float64
	timeout     time.Duration
	logger      *log.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel sets the model name passed to the provider.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float64) Option {
	return func(g *Generator) { g.temperature = t }
}

// WithTimeout overrides DefaultTimeout. A non-positive value disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// WithLogger sets the logger that receives generation failures.
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator returns a Generator backed by provider.
func NewGenerator(provider Provider, opts ...Option) *Generator {
	g := &Generator{
		provider:    provider,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns script text for prompt. Provider failures and the generator's own
// timeout are logged and yield Placeholder with a nil error. A blank prompt returns
// ErrEmptyPrompt, and cancellation of the caller's ctx returns its error so the
// caller keeps the existing script.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	parent := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.provider.Complete(ctx, Request{
		Model:       g.model,
		System:      SystemInstruction,
		Prompt:      "Prompt: " + prompt,
		Temperature: g.temperature,
	})
	if err != nil && parent.Err() != nil {
		g.logger.Info("script generation cancelled", "model", g.model, "elapsed", time.Since(start))
		return "", parent.Err()
	}
	if err != nil {
		g.logger.Error("script generation failed", "model", g.model, "elapsed", time.Since(start), "err", err)
		return Placeholder, nil
	}
	g.logger.Debug("script generated", "model", g.model, "elapsed", time.Since(start), "bytes", len(text))
	return StripFences(text), nil
}

// Apply generates a script for prompt and stores it on p. Nothing else on p changes,
// and p is left untouched when Generate returns an error.
func (g *Generator) Apply(ctx context.Context, p *project.Project, prompt string) error {
	text, err := g.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	p.SetScriptContent(text)
	return nil
}

// Guard admits at most one outstanding generation. The zero value is ready to use.
type Guard struct {
	busy atomic.Bool
}

// TryAcquire claims the guard, returning ErrBusy if it is already held.
func (g *Guard) TryAcquire() error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

// Release frees the guard.
func (g *Guard) Release() {
	g.busy.Store(false)
}

// Busy reports whether a generation is outstanding.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}
