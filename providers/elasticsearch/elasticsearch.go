package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/remiges-tech/khoj/providers"
	"github.com/remiges-tech/khoj/query"
)

const (
	// indexMappingTemplate is the Elasticsearch index mapping for lines.
	// Match columns are keywords so wildcard queries see the whole value,
	// case-sensitively. The record itself is stored but not indexed.
	indexMappingTemplate = `{
		"settings": {
			"number_of_shards": %d,
			"number_of_replicas": %d
		},
		"mappings": {
			"properties": {
				"id": {"type": "keyword"},
				"key": {"type": "keyword"},
				"first_letters": {"type": "keyword"},
				"gurmukhi_plain": {"type": "keyword"},
				"record": {"type": "object", "enabled": false}
			}
		}
	}`
)

// Provider implements the lookup Provider interface using Elasticsearch.
type Provider struct {
	client        *elasticsearch.Client
	index         string
	refreshPolicy string
}

// document represents the structure stored in Elasticsearch.
type document struct {
	ID            string               `json:"id"`
	Key           string               `json:"key"`
	FirstLetters  string               `json:"first_letters"`
	GurmukhiPlain string               `json:"gurmukhi_plain"`
	Record        providers.LineRecord `json:"record"`
}

// searchHit represents a single search result from Elasticsearch.
type searchHit struct {
	Source document `json:"_source"`
}

// searchResponse represents the Elasticsearch search response.
type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// New creates a new Elasticsearch provider with the given configuration.
func New(config *Config) (*Provider, error) {
	config.setDefaults()

	esConfig := elasticsearch.Config{
		Addresses: config.URLs,
		Username:  config.Username,
		Password:  config.Password,
		CloudID:   config.CloudID,
		APIKey:    config.APIKey,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	// Test connection
	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch connection error: %s", res.String())
	}

	provider := &Provider{
		client:        client,
		index:         config.Index,
		refreshPolicy: config.RefreshPolicy,
	}

	if err := provider.createIndexIfNotExists(config); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return provider, nil
}

// createIndexIfNotExists creates the index with appropriate mappings if it doesn't exist.
func (p *Provider) createIndexIfNotExists(config *Config) error {
	exists, err := p.indexExists()
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	mapping := fmt.Sprintf(indexMappingTemplate, config.NumberOfShards, config.NumberOfReplicas)

	req := esapi.IndicesCreateRequest{
		Index: p.index,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(context.Background(), p.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("failed to create index: %s", res.String())
	}

	return nil
}

// indexExists checks if the index exists.
func (p *Provider) indexExists() (bool, error) {
	req := esapi.IndicesExistsRequest{
		Index: []string{p.index},
	}

	res, err := req.Do(context.Background(), p.client)
	if err != nil {
		return false, err
	}
	defer func() { _ = res.Body.Close() }()

	const httpOK = 200
	return res.StatusCode == httpOK, nil
}

// Index adds or replaces lines, one document per line.
func (p *Provider) Index(ctx context.Context, key string, records []providers.LineRecord) error {
	for _, rec := range records {
		if err := p.indexRecord(ctx, key, rec); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) indexRecord(ctx context.Context, key string, rec providers.LineRecord) error {
	doc := document{
		ID:            rec.ID,
		Key:           key,
		FirstLetters:  rec.Letters(),
		GurmukhiPlain: rec.Plain(),
		Record:        rec,
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      p.index,
		DocumentID: generateDocumentID(key, rec.ID),
		Body:       bytes.NewReader(docJSON),
		Refresh:    p.refreshPolicy,
	}

	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("failed to index document: %s", res.String())
	}

	return nil
}

// Query runs q as a wildcard query over the field its mode is indexed under.
func (p *Provider) Query(ctx context.Context, key string, q query.SearchQuery, options providers.QueryOptions) ([]providers.LineRecord, error) {
	esQuery, ok := buildQuery(key, q)
	if !ok || options.MaxResults <= 0 {
		return []providers.LineRecord{}, nil
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	size := options.MaxResults
	req := esapi.SearchRequest{
		Index: []string{p.index},
		Body:  &buf,
		Size:  &size,
	}

	res, err := req.Do(ctx, p.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.String())
	}

	return parseSearchResponse(res.Body, options)
}

// buildQuery constructs the Elasticsearch query for q within key.
func buildQuery(key string, q query.SearchQuery) (map[string]interface{}, bool) {
	field, pattern, ok := wildcardFor(q)
	if !ok {
		return nil, false
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{
							"key": key,
						},
					},
					map[string]interface{}{
						"wildcard": map[string]interface{}{
							field: map[string]interface{}{
								"value": pattern,
							},
						},
					},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"id": "asc"},
		},
	}, true
}

// wildcardFor returns the field and wildcard pattern that select the lines q
// matches.
func wildcardFor(q query.SearchQuery) (field, pattern string, ok bool) {
	switch q.Mode {
	case query.FullWord:
		needle := strings.TrimSpace(q.Value)
		if needle == "" {
			return "", "", false
		}
		return "gurmukhi_plain", "*" + escapeWildcard(needle) + "*", true
	default:
		compiled := query.CompilePattern(q.Value)
		if compiled.Len() == 0 {
			return "", "", false
		}
		var b strings.Builder
		b.WriteByte('*')
		for _, r := range compiled.String() {
			if r == query.WildcardMarker {
				b.WriteByte('?')
				continue
			}
			b.WriteString(escapeWildcard(string(r)))
		}
		b.WriteByte('*')
		return "first_letters", b.String(), true
	}
}

// escapeWildcard quotes the wildcard query metacharacters in s.
func escapeWildcard(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '*' || r == '?' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseSearchResponse parses the Elasticsearch response into shaped records.
func parseSearchResponse(body io.Reader, options providers.QueryOptions) ([]providers.LineRecord, error) {
	var response searchResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]providers.LineRecord, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		results = append(results, options.Shape(hit.Source.Record))
	}

	return results, nil
}

// Delete removes a line from the index.
func (p *Provider) Delete(ctx context.Context, key, id string) error {
	req := esapi.DeleteRequest{
		Index:      p.index,
		DocumentID: generateDocumentID(key, id),
		Refresh:    p.refreshPolicy,
	}

	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// 404 is not an error for delete (idempotent)
	const httpNotFound = 404
	if res.IsError() && res.StatusCode != httpNotFound {
		return fmt.Errorf("failed to delete document: %s", res.String())
	}

	return nil
}

// DeleteAll removes all lines for a given key namespace.
func (p *Provider) DeleteAll(ctx context.Context, key string) error {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"key": key,
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	refresh := p.refreshPolicy == "true"
	req := esapi.DeleteByQueryRequest{
		Index:   []string{p.index},
		Body:    &buf,
		Refresh: &refresh,
	}

	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to delete by query: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("failed to delete by query: %s", res.String())
	}

	return nil
}

// Close closes the provider connection.
func (p *Provider) Close() error {
	// The Elasticsearch Go client doesn't have a Close method
	// as it uses standard HTTP connections that are managed by Go's http package
	return nil
}

// generateDocumentID creates a unique document ID from key and id.
func generateDocumentID(key, id string) string {
	return fmt.Sprintf("%s:%s", key, id)
}
