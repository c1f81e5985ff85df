package httpapi

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandezvara/nftkit"
)

var (
	deployerKey = mustKey("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	minterKey   = mustKey("ae6ae8e5ccbfb04590405997ee2d52d2b330726137b875053c36d94e974d162f")
	bobKey      = mustKey("0dbbe8e4ae425a6d2687f1a7e3ba17bc98c673636790f1b8ad91193c05875ef1")

	deployer = crypto.PubkeyToAddress(deployerKey.PublicKey)
	minter   = crypto.PubkeyToAddress(minterKey.PublicKey)
	bob      = crypto.PubkeyToAddress(bobKey.PublicKey)
	alice    = common.HexToAddress("0x000000000000000000000000000000000000a11c")
)

func mustKey(hex string) *ecdsa.PrivateKey {
	key, err := crypto.HexToECDSA(hex)
	if err != nil {
		panic(err)
	}
	return key
}

type testServer struct {
	ledger *nftkit.TokenLedger
	audit  *nftkit.MemoryAuditLog
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := nftkit.NewMemoryAuditLog()
	ctx := nftkit.WithCaller(context.Background(), deployer)

	ledger, err := nftkit.NewTokenLedger(ctx, "Warrior", "WARRIOR", "warrior/",
		nftkit.WithLogger(logger), nftkit.WithAuditLogger(audit))
	require.NoError(t, err)
	require.NoError(t, ledger.GrantRole(ctx, nftkit.MinterRole, minter))

	return &testServer{ledger: ledger, audit: audit, router: NewRouter(ledger, logger, nil)}
}

// do sends a request signed by key; a nil key sends it unsigned.
func (s *testServer) do(t *testing.T, method, path string, key *ecdsa.PrivateKey, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if key != nil {
		require.NoError(t, nftkit.SignRequest(req, key, uuid.NewString(), time.Now()))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

// TestWarriorOverHTTP runs the warrior scenario through the HTTP API
func TestWarriorOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/tokens", minterKey, `{"to":"`+alice.Hex()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, uint64(1), decode[mintResponse](t, w).TokenID)

	w = s.do(t, http.MethodPost, "/tokens", minterKey, `{"to":"`+bob.Hex()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, uint64(2), decode[mintResponse](t, w).TokenID)

	w = s.do(t, http.MethodPost, "/tokens/batch", minterKey, `{"recipients":["`+alice.Hex()+`","`+bob.Hex()+`"]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []uint64{3, 4}, decode[batchMintResponse](t, w).TokenIDs)

	w = s.do(t, http.MethodGet, "/tokens/3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	tok := decode[tokenResponse](t, w)
	assert.Equal(t, alice.Hex(), tok.Owner)
	assert.Equal(t, "warrior/3", tok.TokenURI)

	w = s.do(t, http.MethodGet, "/tokens/5", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "nonexistent token")

	w = s.do(t, http.MethodGet, "/accounts/"+alice.Hex()+"/balance", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(2), decode[balanceResponse](t, w).Balance)

	w = s.do(t, http.MethodGet, "/collection", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, collectionResponse{Name: "Warrior", Symbol: "WARRIOR", BaseURI: "warrior/", TotalSupply: 4},
		decode[collectionResponse](t, w))
}

// TestMintErrors tests how mint failures map to status codes
func TestMintErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		key    *ecdsa.PrivateKey
		body   string
		want   int
	}{
		{"No caller", "/tokens", nil, `{"to":"` + alice.Hex() + `"}`, http.StatusUnauthorized},
		{"Not a minter", "/tokens", deployerKey, `{"to":"` + alice.Hex() + `"}`, http.StatusForbidden},
		{"Zero recipient", "/tokens", minterKey, `{"to":"0x0000000000000000000000000000000000000000"}`, http.StatusBadRequest},
		{"Malformed recipient", "/tokens", minterKey, `{"to":"alice"}`, http.StatusBadRequest},
		{"Missing recipient", "/tokens", minterKey, `{}`, http.StatusBadRequest},
		{"Bad JSON", "/tokens", minterKey, `{`, http.StatusBadRequest},
		{"Zero in batch", "/tokens/batch", minterKey, `{"recipients":["` + alice.Hex() + `","0x0000000000000000000000000000000000000000"]}`, http.StatusBadRequest},
		{"Malformed in batch", "/tokens/batch", minterKey, `{"recipients":["` + alice.Hex() + `","0x12"]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tt.path, tt.key, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	assert.Equal(t, uint64(0), s.ledger.TotalSupply())
}

// TestEmptyBatch tests that an empty batch succeeds without minting
func TestEmptyBatch(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/tokens/batch", minterKey, `{"recipients":[]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, decode[batchMintResponse](t, w).TokenIDs)
}

// TestTokenLookupErrors tests invalid token ids
func TestTokenLookupErrors(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/tokens/abc", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/tokens/0", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/accounts/nope/balance", nil, "").Code)
}

// TestSetBaseURIOverHTTP tests base URI changes
func TestSetBaseURIOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, err := s.ledger.Mint(nftkit.WithCaller(context.Background(), minter), alice)
	require.NoError(t, err)

	w := s.do(t, http.MethodPut, "/base-uri", minterKey, `{"base_uri":"evil/"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "must have admin role to set base uri")

	w = s.do(t, http.MethodPut, "/base-uri", deployerKey, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/base-uri", deployerKey, `{"base_uri":"ipfs://cid/"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/tokens/1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ipfs://cid/1", decode[tokenResponse](t, w).TokenURI)

	w = s.do(t, http.MethodPut, "/base-uri", deployerKey, `{"base_uri":""}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "", s.ledger.BaseURI())
}

// TestRoleRoutes tests granting, revoking and listing roles
func TestRoleRoutes(t *testing.T) {
	s := newTestServer(t)
	member := "/roles/minter/members/" + bob.Hex()

	w := s.do(t, http.MethodGet, member, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[hasRoleResponse](t, w).HasRole)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, member, minterKey, "").Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPut, member, deployerKey, "").Code)
	assert.True(t, s.ledger.HasRole(nftkit.MinterRole, bob))

	w = s.do(t, http.MethodGet, "/roles/MINTER_ROLE/members", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	members := decode[membersResponse](t, w)
	assert.Equal(t, "MINTER_ROLE", members.Role)
	assert.ElementsMatch(t, []string{minter.Hex(), bob.Hex()}, members.Members)

	w = s.do(t, http.MethodPost, "/tokens", bobKey, `{"to":"`+alice.Hex()+`"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, member, deployerKey, "").Code)
	assert.False(t, s.ledger.HasRole(nftkit.MinterRole, bob))

	w = s.do(t, http.MethodPost, "/tokens", bobKey, `{"to":"`+alice.Hex()+`"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/roles/owner/members", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/roles/minter/members/0x12", deployerKey, "").Code)
}

// TestRequestMetadataReachesAudit tests that request metadata is recorded with the mutation
func TestRequestMetadataReachesAudit(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/tokens", strings.NewReader(`{"to":"`+alice.Hex()+`"}`))
	req.Header.Set("X-Request-ID", "req-77")
	req.Header.Set("User-Agent", "nft-cli/1.0")
	require.NoError(t, nftkit.SignRequest(req, minterKey, "meta-1", time.Now()))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	entries, err := s.audit.Entries(context.Background(), nftkit.NewAuditLogFilter().WithAction(nftkit.AuditActionMinted))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-77", entries[0].RequestID)
	assert.Equal(t, "nft-cli/1.0", entries[0].UserAgent)
	assert.Equal(t, minter, entries[0].Caller)
}

// TestUnsignedCallerCannotImpersonate tests that naming the deployer in a
// header without a valid signature grants nothing
func TestUnsignedCallerCannotImpersonate(t *testing.T) {
	s := newTestServer(t)
	attacker := common.HexToAddress("0x000000000000000000000000000000000000bad1")
	path := "/roles/minter/members/" + attacker.Hex()

	req := httptest.NewRequest(http.MethodPut, path, nil)
	req.Header.Set(nftkit.CallerHeader, deployer.Hex())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, s.ledger.HasRole(nftkit.MinterRole, attacker))

	req = httptest.NewRequest(http.MethodPut, path, nil)
	require.NoError(t, nftkit.SignRequest(req, bobKey, "forge-1", time.Now()))
	req.Header.Set(nftkit.CallerHeader, deployer.Hex())
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "signature does not match caller address")
	assert.False(t, s.ledger.HasRole(nftkit.MinterRole, attacker))

	req = httptest.NewRequest(http.MethodPut, path, nil)
	require.NoError(t, nftkit.SignRequest(req, deployerKey, "forge-2", time.Now()))
	req.Header.Set(nftkit.SignatureHeader, hexutil.Encode(make([]byte, crypto.SignatureLength)))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, s.ledger.HasRole(nftkit.MinterRole, attacker))

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPut, path, deployerKey, "").Code)
	assert.True(t, s.ledger.HasRole(nftkit.MinterRole, attacker))
}

// TestReplayedRequestRejected tests that a captured signed request cannot be sent twice
func TestReplayedRequestRejected(t *testing.T) {
	s := newTestServer(t)
	body := `{"to":"` + alice.Hex() + `"}`

	req := httptest.NewRequest(http.MethodPost, "/tokens", strings.NewReader(body))
	require.NoError(t, nftkit.SignRequest(req, minterKey, "once", time.Now()))
	replay := httptest.NewRequest(http.MethodPost, "/tokens", strings.NewReader(body))
	replay.Header = req.Header.Clone()

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, replay)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, uint64(1), s.ledger.TotalSupply())
}
