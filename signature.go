package nftkit

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Headers of a signed request.
const (
	CallerHeader    = "X-Caller-Address"
	SignatureHeader = "X-Caller-Signature"
	NonceHeader     = "X-Caller-Nonce"
	TimestampHeader = "X-Caller-Timestamp"
)

const (
	// DefaultSignatureMaxAge is how far a signed timestamp may drift from the
	// server clock, in either direction.
	DefaultSignatureMaxAge = 5 * time.Minute

	// DefaultSignedBodyLimit caps the body read when verifying a signature.
	DefaultSignedBodyLimit = 1 << 20

	maxNonceLength = 128
)

// SignaturePayload returns the text a caller signs for one request: the
// method, the request URI, the unix timestamp, the nonce and the keccak256
// digest of the body, one per line. The payload is hashed as an EIP-191
// personal message, so wallets can produce the signature with personal_sign.
func SignaturePayload(method, requestURI string, timestamp int64, nonce string, body []byte) []byte {
	return []byte(strings.Join([]string{
		method,
		requestURI,
		strconv.FormatInt(timestamp, 10),
		nonce,
		crypto.Keccak256Hash(body).Hex(),
	}, "\n"))
}

// SignRequest signs r with key and sets the caller, signature, nonce and
// timestamp headers. The body is read and replaced so r can still be sent.
//
// Example:
//
//	req, _ := http.NewRequest(http.MethodPost, url+"/tokens", body)
//	err := nftkit.SignRequest(req, key, uuid.NewString(), time.Now())
func SignRequest(r *http.Request, key *ecdsa.PrivateKey, nonce string, now time.Time) error {
	body, err := readBody(r, -1)
	if err != nil {
		return err
	}

	ts := now.Unix()
	hash := accounts.TextHash(SignaturePayload(r.Method, r.URL.RequestURI(), ts, nonce, body))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return fmt.Errorf("nftkit: sign request: %w", err)
	}

	r.Header.Set(CallerHeader, crypto.PubkeyToAddress(key.PublicKey).Hex())
	r.Header.Set(SignatureHeader, hexutil.Encode(sig))
	r.Header.Set(NonceHeader, nonce)
	r.Header.Set(TimestampHeader, strconv.FormatInt(ts, 10))
	return nil
}

// SignatureVerifier authenticates callers from signed requests.
// The caller is the address recovered from the signature, never a value the
// client states.
type SignatureVerifier struct {
	nonces    NonceStore
	maxAge    time.Duration
	bodyLimit int64
	now       func() time.Time
}

// VerifierOption configures a SignatureVerifier.
type VerifierOption func(*SignatureVerifier)

// WithNonceStore sets where used nonces are remembered. Servers running more
// than one replica should share a RedisNonceStore.
func WithNonceStore(store NonceStore) VerifierOption {
	return func(v *SignatureVerifier) {
		v.nonces = store
	}
}

// WithSignatureMaxAge sets the accepted clock drift of signed timestamps.
func WithSignatureMaxAge(d time.Duration) VerifierOption {
	return func(v *SignatureVerifier) {
		if d > 0 {
			v.maxAge = d
		}
	}
}

// WithSignedBodyLimit sets the largest body a signed request may carry.
func WithSignedBodyLimit(n int64) VerifierOption {
	return func(v *SignatureVerifier) {
		if n > 0 {
			v.bodyLimit = n
		}
	}
}

// NewSignatureVerifier creates a verifier. Without WithNonceStore, nonces are
// kept in memory.
func NewSignatureVerifier(opts ...VerifierOption) *SignatureVerifier {
	v := &SignatureVerifier{
		maxAge:    DefaultSignatureMaxAge,
		bodyLimit: DefaultSignedBodyLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.nonces == nil {
		v.nonces = NewMemoryNonceStore()
	}
	return v
}

// Caller verifies the signature on r and returns the signer.
// Requests without a signature return ErrNoCaller. A signature that cannot be
// trusted returns ErrInvalidSignature. Each nonce is accepted once per signer.
func (v *SignatureVerifier) Caller(r *http.Request) (Address, error) {
	sigHex := r.Header.Get(SignatureHeader)
	if sigHex == "" {
		return Address{}, ErrNoCaller
	}

	sig, err := hexutil.Decode(sigHex)
	if err != nil || len(sig) != crypto.SignatureLength {
		return Address{}, NewError(ErrInvalidSignature, "malformed signature")
	}
	// personal_sign produces v in {27, 28}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	ts, err := strconv.ParseInt(r.Header.Get(TimestampHeader), 10, 64)
	if err != nil {
		return Address{}, NewError(ErrInvalidSignature, "malformed timestamp")
	}
	if drift := v.now().Sub(time.Unix(ts, 0)); drift > v.maxAge || drift < -v.maxAge {
		return Address{}, NewError(ErrInvalidSignature, "signature expired")
	}

	nonce := r.Header.Get(NonceHeader)
	if nonce == "" || len(nonce) > maxNonceLength {
		return Address{}, NewError(ErrInvalidSignature, "missing or oversized nonce")
	}

	body, err := readBody(r, v.bodyLimit)
	if err != nil {
		return Address{}, err
	}

	hash := accounts.TextHash(SignaturePayload(r.Method, r.URL.RequestURI(), ts, nonce, body))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return Address{}, NewError(ErrInvalidSignature, "unrecoverable signature")
	}
	caller := crypto.PubkeyToAddress(*pub)

	if claimed := r.Header.Get(CallerHeader); claimed != "" {
		if !common.IsHexAddress(claimed) || common.HexToAddress(claimed) != caller {
			return Address{}, NewError(ErrInvalidSignature, "signature does not match caller address").WithCaller(caller)
		}
	}

	fresh, err := v.nonces.Claim(r.Context(), caller, nonce, 2*v.maxAge)
	if err != nil {
		return Address{}, fmt.Errorf("nftkit: claim nonce: %w", err)
	}
	if !fresh {
		return Address{}, NewError(ErrInvalidSignature, "nonce already used").WithCaller(caller)
	}

	return caller, nil
}

// Authenticate creates middleware that places the verified signer in the
// request context as the caller. Unsigned requests continue without a caller,
// so read routes stay public and mutations fail with ErrNoCaller. Requests
// carrying a bad signature are passed to onError; a nil onError writes a
// plain-text status.
//
// Example:
//
//	verifier := nftkit.NewSignatureVerifier()
//	router.Use(verifier.Authenticate(nil), mw.InjectAuditContext())
func (v *SignatureVerifier) Authenticate(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	if onError == nil {
		onError = defaultErrorHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := v.Caller(r)
			switch {
			case errors.Is(err, ErrNoCaller):
				next.ServeHTTP(w, r)
			case err != nil:
				onError(w, r, err)
			default:
				next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
			}
		})
	}
}

// readBody drains r.Body and replaces it with a reader over the same bytes.
// A negative limit reads everything.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	src := io.Reader(r.Body)
	if limit >= 0 {
		src = io.LimitReader(r.Body, limit+1)
	}
	body, err := io.ReadAll(src)
	_ = r.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("nftkit: read request body: %w", err)
	}
	if limit >= 0 && int64(len(body)) > limit {
		return nil, NewError(ErrInvalidSignature, "request body too large")
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
