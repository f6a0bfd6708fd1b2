package redis

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/remiges-tech/khoj/providers"
	"github.com/remiges-tech/khoj/providers/providertest"
	"github.com/remiges-tech/khoj/query"
)

const testKey = "test"

var (
	sharedContainer testcontainers.Container
	sharedConfig    Config
	sharedProvider  *Provider
)

// TestMain sets up a shared Redis container for all tests
// In short mode no container is started and the tests that need one skip.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	// Setup
	ctx := context.Background()
	container, config, err := setupSharedContainer(ctx)
	if err != nil {
		log.Fatalf("Failed to setup test container: %v", err)
	}

	sharedContainer = container
	sharedConfig = config

	sharedProvider, err = New(config)
	if err != nil {
		log.Fatalf("Failed to connect to test container: %v", err)
	}

	// Run tests
	code := m.Run()

	// Cleanup
	_ = sharedProvider.Close()
	if sharedContainer != nil {
		if err := sharedContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}

	os.Exit(code)
}

func setupSharedContainer(ctx context.Context) (testcontainers.Container, Config, error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:8-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, Config{}, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, Config{}, err
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		return nil, Config{}, err
	}

	return container, Config{Addr: fmt.Sprintf("%s:%s", host, port.Port())}, nil
}

func getTestRedisClient(t *testing.T) *Provider {
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}
	if sharedProvider == nil {
		t.Fatal("Redis provider not initialized")
	}

	// Clear the database before each test
	ctx := context.Background()
	if err := sharedProvider.client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush database: %v", err)
	}

	return sharedProvider
}

func TestRedisProvider_Suite(t *testing.T) {
	getTestRedisClient(t)

	p, err := New(sharedConfig)
	require.NoError(t, err)

	providertest.Run(t, p, nil)
}

func TestRedisProvider_Members(t *testing.T) {
	provider := getTestRedisClient(t)
	ctx := context.Background()

	rec := providers.LineRecord{ID: "1", Gurmukhi: "ijin syivAw; iqin pwieAw mwnu ]"}
	require.NoError(t, provider.Index(ctx, testKey, []providers.LineRecord{rec}))

	count := func(set string) int64 {
		n, err := provider.client.ZCard(ctx, set).Result()
		require.NoError(t, err)
		return n
	}
	assert.Equal(t, int64(6), count(prefixLetters+testKey))
	assert.Equal(t, int64(len(rec.Plain())), count(prefixPlain+testKey))

	rec.Gurmukhi = "ijin syivAw"
	require.NoError(t, provider.Index(ctx, testKey, []providers.LineRecord{rec}))
	assert.Equal(t, int64(2), count(prefixLetters+testKey), "replaced line leaves no stale suffixes")
	assert.Equal(t, int64(len("ijin syivAw")), count(prefixPlain+testKey))

	require.NoError(t, provider.Delete(ctx, testKey, "1"))
	assert.Zero(t, count(prefixLetters+testKey))
	assert.Zero(t, count(prefixPlain+testKey))
}

func TestRedisProvider_WildcardVerification(t *testing.T) {
	provider := getTestRedisClient(t)
	ctx := context.Background()

	require.NoError(t, provider.Index(ctx, testKey, []providers.LineRecord{
		{ID: "1", Gurmukhi: "ijin syivAw iqin"},
		{ID: "2", Gurmukhi: "ijin iqin syivAw"},
	}))

	// Both lines contain the literal run "j" but only one has a letter
	// between "j" and "q".
	results, err := provider.Query(ctx, testKey, query.Parse("j q"), providers.QueryOptions{MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ID)
}

func TestScanFor(t *testing.T) {
	tests := []struct {
		raw         string
		wantSet     string
		wantLiteral string
		wantOK      bool
	}{
		{"jsq", prefixLetters + testKey, "jsq", true},
		{"j qp", prefixLetters + testKey, "qp", true},
		{"Sg", prefixLetters + testKey, "sg", true},
		{"  ", prefixLetters + testKey, "", true},
		{"#siq nwmu ", prefixPlain + testKey, "siq nwmu", true},
		{"#", prefixPlain + testKey, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			set, literal, ok := scanFor(testKey, query.Parse(tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSet, set)
			assert.Equal(t, tt.wantLiteral, literal)
		})
	}
}

func TestMembers(t *testing.T) {
	assert.Equal(t, []string{"ab", "b"}, suffixes("ab"))
	assert.Equal(t, []string{"ਸਤਿ", "ਤਿ", "ਿ"}, suffixes("ਸਤਿ"))
	assert.Nil(t, suffixes(""))

	member := createMember("jsq", "line:1")
	assert.Equal(t, "line:1", extractIDFromMember(member))
	assert.Equal(t, "", extractIDFromMember("no separator"))
	assert.Equal(t, []string{"1", "2"}, extractUniqueIDs([]string{
		createMember("a", "1"), createMember("b", "2"), createMember("c", "1"),
	}))
}
