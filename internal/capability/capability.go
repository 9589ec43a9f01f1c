// Package capability implements the capability bitmask carried by
// attestation payloads and enforced by the verifier.
package capability

import (
	"strconv"
	"strings"

	dErrors "scrip/pkg/domain-errors"
)

// Mask is a set of capabilities packed into eight bits.
type Mask uint8

// Capability bits. Admin implies every other capability.
const (
	Claim          Mask = 0x01
	Transfer       Mask = 0x02
	RequestPayment Mask = 0x04
	ApprovePayment Mask = 0x08
	UpdateMetadata Mask = 0x10
	DelegateRights Mask = 0x20
	RevokeAccess   Mask = 0x40
	Admin          Mask = 0x80
)

// All is every capability including Admin.
const All Mask = 0xff

// names is ordered by bit position so Names output is stable.
var names = []struct {
	bit  Mask
	name string
}{
	{Claim, "claim"},
	{Transfer, "transfer"},
	{RequestPayment, "request_payment"},
	{ApprovePayment, "approve_payment"},
	{UpdateMetadata, "update_metadata"},
	{DelegateRights, "delegate_rights"},
	{RevokeAccess, "revoke_access"},
	{Admin, "admin"},
}

var byName = func() map[string]Mask {
	m := make(map[string]Mask, len(names))
	for _, n := range names {
		m[n.name] = n.bit
	}
	return m
}()

// Has reports whether the mask grants every bit of required. Admin holders
// are granted everything. A zero required mask is vacuously granted.
func (m Mask) Has(required Mask) bool {
	if m&Admin != 0 {
		return true
	}
	return m&required == required
}

// Add returns the mask with the given bits set.
func (m Mask) Add(bits Mask) Mask {
	return m | bits
}

// Remove returns the mask with the given bits cleared.
func (m Mask) Remove(bits Mask) Mask {
	return m &^ bits
}

// IsAdmin reports whether the admin bit is set.
func (m Mask) IsAdmin() bool {
	return m&Admin != 0
}

// Names returns the set bits as names, ordered by bit position.
func (m Mask) Names() []string {
	var out []string
	for _, n := range names {
		if m&n.bit != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

// String renders the mask for logs: "claim|transfer", or "none" when empty.
func (m Mask) String() string {
	if m == 0 {
		return "none"
	}
	return strings.Join(m.Names(), "|")
}

// Parse reads a mask from transport input. It accepts a number (decimal or
// 0x-prefixed hex) or capability names joined by "|" or ",".
func Parse(raw string) (Mask, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "capability cannot be empty")
	}

	if n, err := strconv.ParseUint(raw, 0, 8); err == nil {
		return Mask(n), nil
	}

	var m Mask
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ',' }) {
		bit, ok := byName[strings.TrimSpace(strings.ToLower(part))]
		if !ok {
			return 0, dErrors.Newf(dErrors.CodeInvalidInput, "unknown capability %q", part)
		}
		m = m.Add(bit)
	}
	return m, nil
}
