// Package message builds and parses the human-readable messages a wallet signs.
package message

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Kind identifies the action a message authorizes
type Kind string

const (
	KindAuth        Kind = "auth"
	KindClaim       Kind = "claim"
	KindEndorsement Kind = "endorsement"
)

// Titles are the first line of each message kind
const (
	TitleAuth        = "Creator Ledger Authentication"
	TitleClaim       = "Creator Ledger Content Claim"
	TitleEndorsement = "Creator Ledger Endorsement"
)

// Line labels
const (
	labelWallet      = "Wallet"
	labelTimestamp   = "Timestamp"
	labelClaimURL    = "I am claiming authorship of"
	labelContentHash = "Content Hash"
	labelAction      = "Action"
	labelEntry       = "Entry"
)

// TimestampLayout matches JavaScript's Date.prototype.toISOString
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ErrMalformed is returned by Parse when a message does not follow a known template
var ErrMalformed = errors.New("malformed message")

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system clock
type SystemClock struct{}

// Now returns time.Now
func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time { return f() }

// Fields are the variable parts of a message. Unused fields are ignored
// and missing ones are interpolated as empty.
type Fields struct {
	Address     string
	URL         string
	EntryID     string
	ContentHash string
	Vote        string
}

// Builder builds canonical messages
type Builder struct {
	clock Clock
}

// NewBuilder creates a builder using clock, or the system clock when nil
func NewBuilder(clock Clock) *Builder {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Builder{clock: clock}
}

// Build returns the message for kind, ending in the current UTC timestamp
func (b *Builder) Build(kind Kind, f Fields) string {
	ts := FormatTimestamp(b.clock.Now())

	var lines []string
	switch kind {
	case KindClaim:
		lines = []string{
			TitleClaim,
			"",
			line(labelClaimURL, f.URL),
			line(labelContentHash, f.ContentHash),
			line(labelWallet, f.Address),
			line(labelTimestamp, ts),
		}
	case KindEndorsement:
		lines = []string{
			TitleEndorsement,
			"",
			line(labelAction, f.Vote),
			line(labelEntry, f.EntryID),
			line(labelWallet, f.Address),
			line(labelTimestamp, ts),
		}
	default:
		lines = []string{
			TitleAuth,
			"",
			line(labelWallet, f.Address),
			line(labelTimestamp, ts),
		}
	}

	return strings.Join(lines, "\n")
}

// FormatTimestamp renders t as an ISO-8601 UTC timestamp with millisecond precision
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func line(label, value string) string {
	return label + ": " + value
}

// Parsed is a message recovered from its text
type Parsed struct {
	Kind      Kind
	Fields    Fields
	Timestamp time.Time
}

// Parse recognizes a message produced by Build
func Parse(raw string) (Parsed, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) < 3 || lines[1] != "" {
		return Parsed{}, ErrMalformed
	}

	var p Parsed
	switch lines[0] {
	case TitleAuth:
		p.Kind = KindAuth
	case TitleClaim:
		p.Kind = KindClaim
	case TitleEndorsement:
		p.Kind = KindEndorsement
	default:
		return Parsed{}, fmt.Errorf("unknown title %q: %w", lines[0], ErrMalformed)
	}

	var ts string
	for _, l := range lines[2:] {
		label, value, ok := strings.Cut(l, ": ")
		if !ok {
			return Parsed{}, fmt.Errorf("unexpected line %q: %w", l, ErrMalformed)
		}
		switch label {
		case labelWallet:
			p.Fields.Address = value
		case labelTimestamp:
			ts = value
		case labelClaimURL:
			p.Fields.URL = value
		case labelContentHash:
			p.Fields.ContentHash = value
		case labelAction:
			p.Fields.Vote = value
		case labelEntry:
			p.Fields.EntryID = value
		default:
			return Parsed{}, fmt.Errorf("unknown label %q: %w", label, ErrMalformed)
		}
	}

	t, err := time.Parse(TimestampLayout, ts)
	if err != nil {
		return Parsed{}, fmt.Errorf("bad timestamp: %w", ErrMalformed)
	}
	p.Timestamp = t

	return p, nil
}

// VerificationLink builds the deep-link a third party can use to re-run
// signature verification for an address, signature and message.
func VerificationLink(base, address, signature, msg, entryID string) string {
	q := url.Values{}
	q.Set("address", address)
	q.Set("signature", signature)
	q.Set("message", msg)
	if entryID != "" {
		q.Set("entryId", entryID)
	}
	return strings.TrimRight(base, "/") + "/verify?" + q.Encode()
}
