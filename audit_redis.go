package nftkit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// DefaultAuditStream is the Redis stream used when none is configured.
const DefaultAuditStream = "nftkit:audit"

// RedisAuditLog appends audit entries to a Redis stream, one stream entry per
// mutation, so external consumers can follow the ledger with XREAD.
type RedisAuditLog struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisAuditLog creates an audit sink writing to stream. A maxLen above zero
// caps the stream approximately at that many entries.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	audit := nftkit.NewRedisAuditLog(client, nftkit.DefaultAuditStream, 0)
func NewRedisAuditLog(client redis.Cmdable, stream string, maxLen int64) *RedisAuditLog {
	if stream == "" {
		stream = DefaultAuditStream
	}
	return &RedisAuditLog{client: client, stream: stream, maxLen: maxLen}
}

// Stream returns the stream key entries are written to.
func (l *RedisAuditLog) Stream() string {
	return l.stream
}

// Record appends the entry to the stream.
func (l *RedisAuditLog) Record(ctx context.Context, entry *AuditEntry) error {
	m := entry.ToModel()

	ids := make([]string, len(m.TokenIDs))
	for i, id := range m.TokenIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	args := &redis.XAddArgs{
		Stream: l.stream,
		Values: map[string]any{
			"timestamp":         m.Timestamp.UTC().Format(time.RFC3339Nano),
			"collection":        m.Collection,
			"action":            m.Action,
			"caller":            m.Caller,
			"account":           m.Account,
			"role":              m.Role,
			"token_ids":         strings.Join(ids, ","),
			"recipients":        strings.Join(m.Recipients, ","),
			"previous_base_uri": m.PreviousBaseURI,
			"new_base_uri":      m.NewBaseURI,
			"ip_address":        m.IPAddress,
			"user_agent":        m.UserAgent,
			"request_id":        m.RequestID,
		},
	}
	if l.maxLen > 0 {
		args.MaxLen = l.maxLen
		args.Approx = true
	}
	return l.client.XAdd(ctx, args).Err()
}

// Entries reads matching entries, newest first. The stream is scanned
// backwards in pages of Offset+Limit entries until enough matches are found.
func (l *RedisAuditLog) Entries(ctx context.Context, filter AuditLogFilter) ([]AuditEntry, error) {
	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	page := int64(limit+filter.Offset) + 1

	var out []AuditEntry
	skipped := 0
	start := "+"
	for len(out) < limit {
		msgs, err := l.client.XRevRangeN(ctx, l.stream, start, "-", page).Result()
		if err != nil {
			return nil, err
		}
		fetched := int64(len(msgs))
		if start != "+" && len(msgs) > 0 && msgs[0].ID == start {
			msgs = msgs[1:]
		}

		for _, msg := range msgs {
			e := decodeStreamEntry(msg.Values)
			if !filter.Matches(&e) {
				continue
			}
			if skipped < filter.Offset {
				skipped++
				continue
			}
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}

		if fetched < page || len(msgs) == 0 {
			break
		}
		start = msgs[len(msgs)-1].ID
	}
	return out, nil
}

// Len returns the number of entries in the stream.
func (l *RedisAuditLog) Len(ctx context.Context) (int64, error) {
	return l.client.XLen(ctx, l.stream).Result()
}

func decodeStreamEntry(values map[string]any) AuditEntry {
	str := func(key string) string {
		if v, ok := values[key].(string); ok {
			return v
		}
		return ""
	}

	e := AuditEntry{
		Collection:      str("collection"),
		Action:          AuditAction(str("action")),
		Caller:          common.HexToAddress(str("caller")),
		PreviousBaseURI: str("previous_base_uri"),
		NewBaseURI:      str("new_base_uri"),
		IPAddress:       str("ip_address"),
		UserAgent:       str("user_agent"),
		RequestID:       str("request_id"),
	}
	if ts, err := time.Parse(time.RFC3339Nano, str("timestamp")); err == nil {
		e.Timestamp = ts
	}
	if a := str("account"); a != "" {
		e.Account = common.HexToAddress(a)
	}
	if r := str("role"); r != "" {
		role := common.HexToHash(r)
		e.Role = &role
	}
	if ids := str("token_ids"); ids != "" {
		for _, s := range strings.Split(ids, ",") {
			if id, err := strconv.ParseUint(s, 10, 64); err == nil {
				e.TokenIDs = append(e.TokenIDs, TokenID(id))
			}
		}
	}
	if rs := str("recipients"); rs != "" {
		for _, s := range strings.Split(rs, ",") {
			e.Recipients = append(e.Recipients, common.HexToAddress(s))
		}
	}
	return e
}
