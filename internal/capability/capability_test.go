package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "scrip/pkg/domain-errors"
)

func TestMask_Has(t *testing.T) {
	tests := []struct {
		name     string
		held     Mask
		required Mask
		want     bool
	}{
		{"single bit present", Claim, Claim, true},
		{"single bit absent", Transfer, Claim, false},
		{"zero mask grants nothing", 0, Claim, false},
		{"zero requirement is vacuously granted", 0, 0, true},
		{"multi-bit requires all bits", Claim | Transfer, Claim | Transfer | RevokeAccess, false},
		{"multi-bit all present", Claim | Transfer | RevokeAccess, Claim | Transfer, true},
		{"admin implies claim", Admin, Claim, true},
		{"admin implies every bit at once", Admin, All &^ Admin, true},
		{"admin alongside other bits still implies all", Admin | Claim, RevokeAccess | DelegateRights, true},
		{"full mask grants everything", All, Admin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.held.Has(tt.required))
		})
	}
}

func TestMask_AddRemove(t *testing.T) {
	m := Mask(0).Add(Claim).Add(Transfer | ApprovePayment)
	assert.True(t, m.Has(Claim))
	assert.True(t, m.Has(Transfer))
	assert.True(t, m.Has(ApprovePayment))

	m = m.Remove(Transfer)
	assert.False(t, m.Has(Transfer))
	assert.True(t, m.Has(Claim))

	// Removing an absent bit is a no-op
	assert.Equal(t, m, m.Remove(RevokeAccess))
}

func TestMask_IsAdmin(t *testing.T) {
	assert.True(t, Admin.IsAdmin())
	assert.True(t, (Admin | Claim).IsAdmin())
	assert.False(t, (Claim | Transfer).IsAdmin())
}

func TestMask_Names(t *testing.T) {
	m := RevokeAccess | Claim | UpdateMetadata

	// Ordered by bit position regardless of how the mask was built
	assert.Equal(t, []string{"claim", "update_metadata", "revoke_access"}, m.Names())
	assert.Equal(t, "claim|update_metadata|revoke_access", m.String())
	assert.Equal(t, "none", Mask(0).String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Mask
		wantErr bool
	}{
		{"decimal", "3", Claim | Transfer, false},
		{"hex", "0x80", Admin, false},
		{"single name", "claim", Claim, false},
		{"pipe-joined names", "claim|revoke_access", Claim | RevokeAccess, false},
		{"comma-joined names", "claim, transfer", Claim | Transfer, false},
		{"mixed case name", "ADMIN", Admin, false},
		{"empty", "", 0, true},
		{"unknown name", "fly", 0, true},
		{"number out of range", "256", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
