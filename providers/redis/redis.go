// Package redis implements the lookup Provider interface using Redis as the storage backend.
// Every suffix of a line's first-letter projection and of its plain text is kept in
// a sorted set, so a ZRANGEBYLEX prefix scan finds the lines containing a literal run.
// Wildcard queries scan for their longest literal run and verify the candidates.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/remiges-tech/khoj/providers"
	"github.com/remiges-tech/khoj/query"
)

const (
	// prefixLetters is the Redis key prefix for sorted sets of first-letter suffixes.
	prefixLetters = "khoj:letters:"

	// prefixPlain is the Redis key prefix for sorted sets of plain text suffixes.
	prefixPlain = "khoj:plain:"

	// prefixRecord is the Redis key prefix for hash maps storing ID → record JSON.
	prefixRecord = "khoj:record:"

	// lexicographicMaxChar is the lexicographic maximum character for ZRANGEBYLEX upper bound.
	lexicographicMaxChar = "\xff"

	// memberSeparator divides the suffix from the line ID in a sorted set member.
	// It sorts below every character a suffix can hold.
	memberSeparator = "\x00"
)

// Provider implements the lookup Provider interface using Redis.
// All methods are safe for concurrent use.
type Provider struct {
	client *redis.Client
}

// Config holds Redis connection parameters.
type Config struct {
	// Addr is the Redis server address in the format "host:port".
	Addr string

	// Password is the Redis password (empty string for no password).
	Password string

	// DB is the Redis database number (0-15, default is 0).
	// Redis Cluster only supports DB 0.
	DB int
}

// New creates a new Redis provider with the given configuration.
// It establishes a connection to Redis and verifies connectivity with a PING command.
func New(config Config) (*Provider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password, // pragma: allowlist secret
		DB:       config.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Provider{
		client: client,
	}, nil
}

// Index adds or replaces lines. The suffixes of a replaced line are removed
// in the same pipeline.
func (p *Provider) Index(ctx context.Context, key string, records []providers.LineRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	previous, err := p.fetchRecords(ctx, key, ids)
	if err != nil {
		return err
	}

	pipe := p.client.Pipeline()
	for _, old := range previous {
		removeMembers(ctx, pipe, key, old)
	}

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal line %s: %w", rec.ID, err)
		}
		addMembers(ctx, pipe, prefixLetters+key, rec.Letters(), rec.ID)
		addMembers(ctx, pipe, prefixPlain+key, rec.Plain(), rec.ID)
		pipe.HSet(ctx, prefixRecord+key, rec.ID, data)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Query scans for the longest literal run of q, then verifies the candidates.
func (p *Provider) Query(ctx context.Context, key string, q query.SearchQuery, options providers.QueryOptions) ([]providers.LineRecord, error) {
	set, literal, ok := scanFor(key, q)
	if !ok || options.MaxResults <= 0 {
		return []providers.LineRecord{}, nil
	}

	var (
		candidates []providers.LineRecord
		err        error
	)
	if literal == "" {
		candidates, err = p.allRecords(ctx, key)
	} else {
		candidates, err = p.scan(ctx, key, set, literal)
	}
	if err != nil {
		return nil, err
	}

	return providers.Collect(candidates, q, options), nil
}

// scanFor returns the sorted set and literal run that narrow the lines q can
// match. An empty literal means every line is a candidate.
func scanFor(key string, q query.SearchQuery) (set, literal string, ok bool) {
	switch q.Mode {
	case query.FullWord:
		needle := strings.TrimSpace(q.Value)
		return prefixPlain + key, needle, needle != ""
	default:
		pattern := query.CompilePattern(q.Value)
		return prefixLetters + key, pattern.LongestSegment(), pattern.Len() > 0
	}
}

func (p *Provider) scan(ctx context.Context, key, set, literal string) ([]providers.LineRecord, error) {
	members, err := p.client.ZRangeByLex(ctx, set, &redis.ZRangeBy{
		Min: createLexicographicStartKey(literal),
		Max: createLexicographicEndKey(literal),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", set, err)
	}

	return p.fetchRecords(ctx, key, extractUniqueIDs(members))
}

// fetchRecords fetches the stored records for ids, skipping missing ones.
func (p *Provider) fetchRecords(ctx context.Context, key string, ids []string) ([]providers.LineRecord, error) {
	if len(ids) == 0 {
		return []providers.LineRecord{}, nil
	}

	values, err := p.client.HMGet(ctx, prefixRecord+key, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lines: %w", err)
	}

	records := make([]providers.LineRecord, 0, len(ids))
	for _, value := range values {
		data, ok := value.(string)
		if !ok {
			continue
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func (p *Provider) allRecords(ctx context.Context, key string) ([]providers.LineRecord, error) {
	values, err := p.client.HGetAll(ctx, prefixRecord+key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lines: %w", err)
	}

	records := make([]providers.LineRecord, 0, len(values))
	for _, data := range values {
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecord(data string) (providers.LineRecord, error) {
	var rec providers.LineRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return providers.LineRecord{}, fmt.Errorf("failed to decode line: %w", err)
	}
	return rec, nil
}

// Delete removes a line from the index
func (p *Provider) Delete(ctx context.Context, key, id string) error {
	previous, err := p.fetchRecords(ctx, key, []string{id})
	if err != nil {
		return fmt.Errorf("failed to get line for deletion: %w", err)
	}

	pipe := p.client.Pipeline()
	for _, old := range previous {
		removeMembers(ctx, pipe, key, old)
	}
	pipe.HDel(ctx, prefixRecord+key, id)

	_, err = pipe.Exec(ctx)
	return err
}

// DeleteAll removes all lines for a given key
func (p *Provider) DeleteAll(ctx context.Context, key string) error {
	pipe := p.client.Pipeline()

	deleteAllKeysForNamespace(ctx, pipe, key)

	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the Redis connection. It is safe to call multiple times.
func (p *Provider) Close() error {
	if err := p.client.Close(); err != nil && err != redis.ErrClosed {
		return err
	}
	return nil
}

func createLexicographicStartKey(query string) string {
	return fmt.Sprintf("[%s", query)
}

func createLexicographicEndKey(query string) string {
	return fmt.Sprintf("[%s%s", query, lexicographicMaxChar)
}

func createMember(suffix, id string) string {
	return suffix + memberSeparator + id
}

func extractIDFromMember(member string) string {
	i := strings.LastIndex(member, memberSeparator)
	if i < 0 {
		return ""
	}
	return member[i+len(memberSeparator):]
}

func extractUniqueIDs(members []string) []string {
	seen := make(map[string]bool)
	var ids []string

	for _, member := range members {
		id := extractIDFromMember(member)
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	return ids
}

// suffixes returns every non-empty suffix of text, cut on rune boundaries.
func suffixes(text string) []string {
	var out []string
	for i := range text {
		out = append(out, text[i:])
	}
	return out
}

func addMembers(ctx context.Context, pipe redis.Pipeliner, set, text, id string) {
	for _, suffix := range suffixes(text) {
		pipe.ZAdd(ctx, set, &redis.Z{
			Score:  0,
			Member: createMember(suffix, id),
		})
	}
}

func removeMembers(ctx context.Context, pipe redis.Pipeliner, key string, rec providers.LineRecord) {
	for _, suffix := range suffixes(rec.Letters()) {
		pipe.ZRem(ctx, prefixLetters+key, createMember(suffix, rec.ID))
	}
	for _, suffix := range suffixes(rec.Plain()) {
		pipe.ZRem(ctx, prefixPlain+key, createMember(suffix, rec.ID))
	}
}

func deleteAllKeysForNamespace(ctx context.Context, pipe redis.Pipeliner, key string) {
	pipe.Del(ctx, prefixLetters+key)
	pipe.Del(ctx, prefixPlain+key)
	pipe.Del(ctx, prefixRecord+key)
}
