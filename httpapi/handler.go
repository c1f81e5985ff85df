// Package httpapi exposes a TokenLedger over HTTP. The calling address is the
// signer of the request (see nftkit.SignatureVerifier); every mutating route is
// authorized by the ledger itself.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fernandezvara/nftkit"
)

// Handler serves the ledger routes.
type Handler struct {
	ledger   *nftkit.TokenLedger
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a handler for ledger.
func NewHandler(ledger *nftkit.TokenLedger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		ledger:   ledger,
		validate: validator.New(),
		logger:   logger,
	}
}

// NewRouter builds the chi router with signature authentication and audit
// context injection installed. A nil verifier uses nftkit.NewSignatureVerifier.
func NewRouter(ledger *nftkit.TokenLedger, logger *slog.Logger, verifier *nftkit.SignatureVerifier) chi.Router {
	if verifier == nil {
		verifier = nftkit.NewSignatureVerifier()
	}
	h := NewHandler(ledger, logger)
	mw := nftkit.NewMiddleware(ledger.Roles())

	r := chi.NewRouter()
	r.Use(verifier.Authenticate(h.WriteError), mw.InjectAuditContext())
	h.Mount(r)
	return r
}

// Mount registers the routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/collection", h.collection)
	r.Get("/tokens/{id}", h.token)
	r.Post("/tokens", h.mint)
	r.Post("/tokens/batch", h.mintBatch)
	r.Get("/accounts/{address}/balance", h.balance)
	r.Put("/base-uri", h.setBaseURI)
	r.Get("/roles/{role}/members", h.members)
	r.Get("/roles/{role}/members/{address}", h.hasRole)
	r.Put("/roles/{role}/members/{address}", h.grantRole)
	r.Delete("/roles/{role}/members/{address}", h.revokeRole)
}

type collectionResponse struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	BaseURI     string `json:"base_uri"`
	TotalSupply uint64 `json:"total_supply"`
}

type tokenResponse struct {
	TokenID  uint64 `json:"token_id"`
	Owner    string `json:"owner"`
	TokenURI string `json:"token_uri"`
}

type mintRequest struct {
	To string `json:"to" validate:"required,eth_addr"`
}

type mintResponse struct {
	TokenID uint64 `json:"token_id"`
}

type batchMintRequest struct {
	Recipients []string `json:"recipients" validate:"required,dive,eth_addr"`
}

type batchMintResponse struct {
	TokenIDs []uint64 `json:"token_ids"`
}

type baseURIRequest struct {
	BaseURI *string `json:"base_uri" validate:"required"`
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

type membersResponse struct {
	Role    string   `json:"role"`
	Members []string `json:"members"`
}

type hasRoleResponse struct {
	Role    string `json:"role"`
	Address string `json:"address"`
	HasRole bool   `json:"has_role"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var errBadRequest = errors.New("bad request")

func (h *Handler) collection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, collectionResponse{
		Name:        h.ledger.Name(),
		Symbol:      h.ledger.Symbol(),
		BaseURI:     h.ledger.BaseURI(),
		TotalSupply: h.ledger.TotalSupply(),
	})
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.badRequest(w, "token id must be a positive integer")
		return
	}

	owner, err := h.ledger.OwnerOf(nftkit.TokenID(id))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	uri, err := h.ledger.TokenURI(nftkit.TokenID(id))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{TokenID: id, Owner: owner.Hex(), TokenURI: uri})
}

func (h *Handler) mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.ledger.Mint(r.Context(), common.HexToAddress(req.To))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mintResponse{TokenID: uint64(id)})
}

func (h *Handler) mintBatch(w http.ResponseWriter, r *http.Request) {
	var req batchMintRequest
	if !h.decode(w, r, &req) {
		return
	}

	recipients := make([]nftkit.Address, len(req.Recipients))
	for i, s := range req.Recipients {
		recipients[i] = common.HexToAddress(s)
	}

	ids, err := h.ledger.MintByBatch(r.Context(), recipients)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}

	resp := batchMintResponse{TokenIDs: make([]uint64, len(ids))}
	for i, id := range ids {
		resp.TokenIDs[i] = uint64(id)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	account, ok := h.address(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: account.Hex(), Balance: h.ledger.BalanceOf(account)})
}

func (h *Handler) setBaseURI(w http.ResponseWriter, r *http.Request) {
	var req baseURIRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.ledger.SetBaseURI(r.Context(), *req.BaseURI); err != nil {
		h.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}

	members := h.ledger.Roles().Members(role)
	resp := membersResponse{Role: nftkit.RoleName(role), Members: make([]string, len(members))}
	for i, m := range members {
		resp.Members[i] = m.Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) hasRole(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}
	account, ok := h.address(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, hasRoleResponse{
		Role:    nftkit.RoleName(role),
		Address: account.Hex(),
		HasRole: h.ledger.HasRole(role, account),
	})
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.ledger.GrantRole)
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.ledger.RevokeRole)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request, change func(ctx context.Context, role nftkit.Role, account nftkit.Address) error) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}
	account, ok := h.address(w, r)
	if !ok {
		return
	}
	if err := change(r.Context(), role, account); err != nil {
		h.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) role(w http.ResponseWriter, r *http.Request) (nftkit.Role, bool) {
	role, err := nftkit.RoleByName(chi.URLParam(r, "role"))
	if err != nil {
		h.WriteError(w, r, err)
		return nftkit.Role{}, false
	}
	return role, true
}

func (h *Handler) address(w http.ResponseWriter, r *http.Request) (nftkit.Address, bool) {
	s := chi.URLParam(r, "address")
	if err := h.validate.Var(s, "required,eth_addr"); err != nil {
		h.badRequest(w, "address must be a 0x-prefixed 20-byte hex string")
		return nftkit.Address{}, false
	}
	return common.HexToAddress(s), true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.badRequest(w, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.badRequest(w, err.Error())
		return false
	}
	return true
}

func (h *Handler) badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errBadRequest.Error() + ": " + message})
}

// WriteError writes err as a JSON error body with the status from
// nftkit.StatusCode. Server errors are logged.
func (h *Handler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := nftkit.StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", nftkit.GetRequestID(r.Context())),
			slog.Any("error", err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
