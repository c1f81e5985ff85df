package nftkit

import (
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
)

// Address is an account on the ledger. The zero address is never a valid owner.
type Address = common.Address

// TokenID identifies a minted token. Zero is never issued and means "does not exist".
type TokenID uint64

// String returns the decimal representation used when composing token URIs.
func (id TokenID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// TokenRecord is a single entry of the ownership ledger.
type TokenRecord struct {
	ID    TokenID
	Owner common.Address
}

// AuditAction represents the type of state change recorded in the audit log.
type AuditAction string

const (
	AuditActionDeployed    AuditAction = "deployed"
	AuditActionRoleGranted AuditAction = "role_granted"
	AuditActionRoleRevoked AuditAction = "role_revoked"
	AuditActionMinted      AuditAction = "minted"
	AuditActionBaseURISet  AuditAction = "base_uri_set"
)

// AuditEntry describes one successful mutation.
// Exactly one entry is recorded per successful mutating call.
type AuditEntry struct {
	Collection string
	Action     AuditAction
	Caller     common.Address
	Account    common.Address // Grantee, revokee or recipient
	Role       *Role
	TokenIDs   []TokenID
	Recipients []common.Address // Owners of TokenIDs, same order

	PreviousBaseURI string
	NewBaseURI      string

	IPAddress string
	UserAgent string
	RequestID string

	Timestamp time.Time
}

// NftAuditLog is the persisted shape of an AuditEntry.
type NftAuditLog struct {
	bun.BaseModel `bun:"table:nft_audit_log,alias:nal"`

	ID         string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Timestamp  time.Time `bun:"timestamp,notnull,default:current_timestamp"`
	Collection string    `bun:"collection,notnull"`
	Action     string    `bun:"action,notnull"`
	Caller     string    `bun:"caller,notnull"`
	Account    string    `bun:"account"`
	Role       string    `bun:"role"`

	TokenIDs   []int64  `bun:"token_ids,array"`
	Recipients []string `bun:"recipients,array"`

	PreviousBaseURI string `bun:"previous_base_uri"`
	NewBaseURI      string `bun:"new_base_uri"`

	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`
}

// ToModel converts an AuditEntry to an NftAuditLog model.
func (e *AuditEntry) ToModel() *NftAuditLog {
	m := &NftAuditLog{
		Timestamp:       e.Timestamp,
		Collection:      e.Collection,
		Action:          string(e.Action),
		Caller:          e.Caller.Hex(),
		PreviousBaseURI: e.PreviousBaseURI,
		NewBaseURI:      e.NewBaseURI,
		IPAddress:       e.IPAddress,
		UserAgent:       e.UserAgent,
		RequestID:       e.RequestID,
	}
	if e.Account != (common.Address{}) {
		m.Account = e.Account.Hex()
	}
	if e.Role != nil {
		m.Role = e.Role.Hex()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	for _, id := range e.TokenIDs {
		m.TokenIDs = append(m.TokenIDs, int64(id))
	}
	for _, r := range e.Recipients {
		m.Recipients = append(m.Recipients, r.Hex())
	}
	return m
}

// ToEntry converts a persisted row back to an AuditEntry.
func (m *NftAuditLog) ToEntry() AuditEntry {
	e := AuditEntry{
		Collection:      m.Collection,
		Action:          AuditAction(m.Action),
		Caller:          common.HexToAddress(m.Caller),
		PreviousBaseURI: m.PreviousBaseURI,
		NewBaseURI:      m.NewBaseURI,
		IPAddress:       m.IPAddress,
		UserAgent:       m.UserAgent,
		RequestID:       m.RequestID,
		Timestamp:       m.Timestamp,
	}
	if m.Account != "" {
		e.Account = common.HexToAddress(m.Account)
	}
	if m.Role != "" {
		role := common.HexToHash(m.Role)
		e.Role = &role
	}
	for _, id := range m.TokenIDs {
		e.TokenIDs = append(e.TokenIDs, TokenID(id))
	}
	for _, r := range m.Recipients {
		e.Recipients = append(e.Recipients, common.HexToAddress(r))
	}
	return e
}
