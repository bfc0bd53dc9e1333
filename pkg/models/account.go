// Package models defines the domain models shared by the contribution workflow, its
// remote clients and the service layer.
package models

import (
	"bytes"
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

const (
	// MaxPrincipalLength is the largest principal accepted by the ledgers.
	MaxPrincipalLength = 29
	// SubaccountLength is the fixed size of an ICRC-1 sub-account.
	SubaccountLength = 32
)

var (
	ErrEmptyPrincipal     = errors.New("principal cannot be empty")
	ErrPrincipalTooLong   = errors.New("principal is too long")
	ErrPrincipalChecksum  = errors.New("principal checksum mismatch")
	ErrInvalidSubaccount  = errors.New("invalid sub-account")
	principalTextEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// Principal is an opaque, byte-comparable owner identifier.
type Principal []byte

// ParsePrincipal decodes the textual form "xxxxx-xxxxx-...-xxx" into its bytes and
// verifies the embedded CRC32 checksum.
func ParsePrincipal(text string) (Principal, error) {
	if text == "" {
		return nil, ErrEmptyPrincipal
	}

	raw, err := principalTextEncoding.DecodeString(strings.ToUpper(strings.ReplaceAll(text, "-", "")))
	if err != nil {
		return nil, fmt.Errorf("invalid principal %q: %w", text, err)
	}

	if len(raw) < 4 {
		return nil, fmt.Errorf("invalid principal %q: %w", text, ErrPrincipalChecksum)
	}

	checksum, body := raw[:4], raw[4:]
	if binary.BigEndian.Uint32(checksum) != crc32.ChecksumIEEE(body) {
		return nil, fmt.Errorf("invalid principal %q: %w", text, ErrPrincipalChecksum)
	}

	if len(body) > MaxPrincipalLength {
		return nil, ErrPrincipalTooLong
	}

	return Principal(body), nil
}

// MustParsePrincipal is ParsePrincipal for constants; it panics on bad input.
func MustParsePrincipal(text string) Principal {
	p, err := ParsePrincipal(text)
	if err != nil {
		panic(err)
	}

	return p
}

func (p Principal) String() string {
	buf := make([]byte, 4, 4+len(p))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(p))
	buf = append(buf, p...)

	encoded := strings.ToLower(principalTextEncoding.EncodeToString(buf))

	var b strings.Builder

	for i := 0; i < len(encoded); i += 5 {
		if i > 0 {
			b.WriteByte('-')
		}

		end := min(i+5, len(encoded))
		b.WriteString(encoded[i:end])
	}

	return b.String()
}

func (p Principal) Equal(other Principal) bool {
	return bytes.Equal(p, other)
}

func (p Principal) IsEmpty() bool {
	return len(p) == 0
}

func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Principal) UnmarshalText(text []byte) error {
	parsed, err := ParsePrincipal(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}

// Subaccount discriminates several accounts of the same owner.
type Subaccount [SubaccountLength]byte

// ParseSubaccount accepts up to 64 hex characters; shorter input is left-padded with zeros.
func ParseSubaccount(text string) (*Subaccount, error) {
	if text == "" {
		return nil, nil
	}

	if len(text) > 2*SubaccountLength {
		return nil, fmt.Errorf("%w: %d hex characters", ErrInvalidSubaccount, len(text))
	}

	if len(text)%2 == 1 {
		text = "0" + text
	}

	raw, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSubaccount, err)
	}

	var sub Subaccount
	copy(sub[SubaccountLength-len(raw):], raw)

	return &sub, nil
}

func (s Subaccount) String() string {
	return hex.EncodeToString(s[:])
}

func (s Subaccount) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Subaccount) UnmarshalText(text []byte) error {
	parsed, err := ParseSubaccount(string(text))
	if err != nil {
		return err
	}

	if parsed == nil {
		*s = Subaccount{}

		return nil
	}

	*s = *parsed

	return nil
}

// IsDefault reports whether every byte is zero, which ledgers treat as "no sub-account".
func (s *Subaccount) IsDefault() bool {
	return s == nil || *s == Subaccount{}
}

// Account is an ICRC-1 account: an owner plus an optional sub-account.
type Account struct {
	Owner      Principal   `json:"owner"`
	Subaccount *Subaccount `json:"subaccount,omitempty"`
}

// NewAccount builds an account from principal text and optional sub-account hex.
func NewAccount(owner, subaccount string) (Account, error) {
	principal, err := ParsePrincipal(owner)
	if err != nil {
		return Account{}, err
	}

	sub, err := ParseSubaccount(subaccount)
	if err != nil {
		return Account{}, err
	}

	return Account{Owner: principal, Subaccount: sub}, nil
}

func (a Account) IsZero() bool {
	return a.Owner.IsEmpty()
}

func (a Account) Equal(other Account) bool {
	if !a.Owner.Equal(other.Owner) {
		return false
	}

	if a.Subaccount.IsDefault() || other.Subaccount.IsDefault() {
		return a.Subaccount.IsDefault() && other.Subaccount.IsDefault()
	}

	return *a.Subaccount == *other.Subaccount
}

// String renders "principal" or "principal.subaccounthex".
func (a Account) String() string {
	if a.Subaccount.IsDefault() {
		return a.Owner.String()
	}

	return a.Owner.String() + "." + strings.TrimLeft(a.Subaccount.String(), "0")
}

// ParseAccount is the inverse of Account.String.
func ParseAccount(text string) (Account, error) {
	owner, sub, _ := strings.Cut(text, ".")

	return NewAccount(owner, sub)
}
