package domain

import (
	"regexp"
	"strings"
)

// Channel identifies one independently tracked asset/quote-currency stream,
// e.g. "XRP/BRL".
type Channel string

var supportedQuotes = map[string]bool{
	"BRL": true,
	"USD": true,
	"EUR": true,
}

// SupportedQuote reports whether prices can be tracked in currency.
func SupportedQuote(currency string) bool { return supportedQuotes[currency] }

var channelRe = regexp.MustCompile(`^[A-Z]{2,10}/[A-Z]{3}$`)

// ParseChannel normalizes case and validates the "BASE/QUOTE" shape.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrInvalidChannel
	}
	return c, nil
}

func (c Channel) Valid() bool {
	if !channelRe.MatchString(string(c)) {
		return false
	}
	base, quote := c.Split()
	return supportedQuotes[quote] && base != quote
}

// Split returns the base asset and quote currency. Both are empty for a
// malformed channel.
func (c Channel) Split() (base, quote string) {
	b, q, ok := strings.Cut(string(c), "/")
	if !ok {
		return "", ""
	}
	return b, q
}

func (c Channel) Base() string {
	b, _ := c.Split()
	return b
}

func (c Channel) Quote() string {
	_, q := c.Split()
	return q
}

func (c Channel) String() string { return string(c) }
