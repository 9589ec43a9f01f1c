// Package audit captures the ledger's audit trail. Domain services emit
// Events through a Publisher; sinks fan out to Kafka in production and to an
// in-memory store in dev mode and tests.
package audit

import (
	"time"

	"scrip/internal/capability"
	id "scrip/pkg/domain"
)

// Category classifies audit events by their primary purpose, which drives
// retention and routing downstream.
type Category string

const (
	// CategoryCompliance covers ledger mutations with legal significance:
	// reservations, claims, transfers, revocations, governance changes.
	CategoryCompliance Category = "compliance"

	// CategorySecurity covers denials and emergency controls.
	CategorySecurity Category = "security"

	// CategoryOperations covers routine, high-volume events such as
	// successful capability checks.
	CategoryOperations Category = "operations"
)

// Action names one auditable ledger action.
type Action string

const (
	ActionIssuerRegistered     Action = "issuer_registered"
	ActionTokenReserved        Action = "token_reserved"
	ActionTokenClaimed         Action = "token_claimed"
	ActionReservationCancelled Action = "reservation_cancelled"
	ActionTokenTransferred     Action = "token_transferred"
	ActionTokenRevoked         Action = "token_revoked"
	ActionRoleDelegated        Action = "role_delegated"
	ActionValueTransferred     Action = "value_transferred"
	ActionRecordSplit          Action = "record_split"
	ActionCapabilityVerified   Action = "capability_verified"
	ActionCapabilityDenied     Action = "capability_denied"
	ActionLedgerPaused         Action = "ledger_paused"
	ActionLedgerUnpaused       Action = "ledger_unpaused"
	ActionSchemaUpdated        Action = "schema_updated"
	ActionUpgradeAuthorized    Action = "upgrade_authorized"
)

var actionCategories = map[Action]Category{
	ActionIssuerRegistered:     CategoryCompliance,
	ActionTokenReserved:        CategoryCompliance,
	ActionTokenClaimed:         CategoryCompliance,
	ActionReservationCancelled: CategoryCompliance,
	ActionTokenTransferred:     CategoryCompliance,
	ActionTokenRevoked:         CategoryCompliance,
	ActionRoleDelegated:        CategoryCompliance,
	ActionValueTransferred:     CategoryCompliance,
	ActionRecordSplit:          CategoryCompliance,
	ActionCapabilityVerified:   CategoryOperations,
	ActionCapabilityDenied:     CategorySecurity,
	ActionLedgerPaused:         CategorySecurity,
	ActionLedgerUnpaused:       CategorySecurity,
	ActionSchemaUpdated:        CategoryCompliance,
	ActionUpgradeAuthorized:    CategoryCompliance,
}

// CategoryOf returns the default category for an action. Unknown actions
// land in operations.
func CategoryOf(action Action) Category {
	if c, ok := actionCategories[action]; ok {
		return c
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// TokenID and Slot are pointers because 0 is a valid token id and a valid
// slot; nil means the action has no token or slot dimension.
type Event struct {
	Time          time.Time
	Category      Category
	Action        Action
	Actor         id.PartyID
	DocumentID    id.DocumentID
	TokenID       *id.TokenID
	Slot          *id.SlotID
	AttestationID id.AttestationID
	Capabilities  capability.Mask
	Detail        string
	RequestID     string
}
