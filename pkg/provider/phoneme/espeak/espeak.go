// Package espeak provides a phoneme.Provider backed by the espeak-ng speech
// synthesizer, invoked as a subprocess in phoneme-only mode.
//
// The binary is resolved once at construction. When it is missing every call
// fails fast with phoneme.ErrUnavailable, so the provider can be wired
// unconditionally and simply never produce output on hosts without espeak-ng.
//
// Typical usage:
//
//	p := espeak.New(espeak.WithTimeout(3 * time.Second))
//	ipa, err := p.Phonemize(ctx, "Guten Morgen", "de")
package espeak

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/MrWong99/glyphcard/pkg/provider/phoneme"
)

// Compile-time interface assertion.
var _ phoneme.Provider = (*Provider)(nil)

const (
	defaultBinary  = "espeak-ng"
	defaultTimeout = 5 * time.Second
)

// languageSwitch matches the "(en)" / "(zh)" markers espeak-ng inserts when it
// switches voice for a word it considers foreign.
var languageSwitch = regexp.MustCompile(`\([a-z]{2,3}(-[a-z0-9]+)?\)`)

// Provider runs espeak-ng to produce IPA transcriptions.
type Provider struct {
	binary  string
	path    string
	timeout time.Duration
	lookErr error
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithBinary overrides the executable name or path. Default: "espeak-ng".
func WithBinary(binary string) Option {
	return func(p *Provider) {
		p.binary = binary
	}
}

// WithTimeout bounds each subprocess invocation. Default: 5s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// New creates a Provider. It never fails: a missing binary is reported by
// [Provider.Available] and by every Phonemize call.
func New(opts ...Option) *Provider {
	p := &Provider{
		binary:  defaultBinary,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	p.path, p.lookErr = exec.LookPath(p.binary)
	return p
}

// Name implements phoneme.Provider.
func (p *Provider) Name() string { return "espeak" }

// Available reports whether the espeak-ng binary was found.
func (p *Provider) Available() bool { return p.lookErr == nil }

// Phonemize implements phoneme.Provider. code is an espeak-ng voice name such
// as "en-us", "de" or "cmn".
func (p *Provider) Phonemize(ctx context.Context, text, code string) (string, error) {
	if p.lookErr != nil {
		return "", fmt.Errorf("espeak: %w: %v", phoneme.ErrUnavailable, p.lookErr)
	}
	if code == "" {
		return "", fmt.Errorf("espeak: %w: empty voice", phoneme.ErrUnsupportedLocale)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.path, "-q", "--ipa", "-v", code, "--", text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("espeak: %q: %w", code, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if isUnknownVoice(msg) {
			return "", fmt.Errorf("espeak: %w: %q", phoneme.ErrUnsupportedLocale, code)
		}
		return "", fmt.Errorf("espeak: run %q: %w: %s", code, err, msg)
	}
	if msg := strings.TrimSpace(stderr.String()); isUnknownVoice(msg) {
		// Some builds exit 0 and fall back to the default voice.
		return "", fmt.Errorf("espeak: %w: %q", phoneme.ErrUnsupportedLocale, code)
	}

	return cleanOutput(stdout.String()), nil
}

// cleanOutput joins espeak-ng's per-clause lines and strips voice switch markers.
func cleanOutput(s string) string {
	s = languageSwitch.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func isUnknownVoice(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "voice does not exist") ||
		strings.Contains(lower, "unknown voice")
}
