package translate

import (
	"context"
	"encoding/hex"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/song782360037/MTranServer/observability"
)

// maxLiteralKeyLen is the longest joined argument string stored as a cache
// key verbatim; longer keys are replaced by a fixed-length digest.
const maxLiteralKeyLen = 200

// Client is the pivot translation client: a thin pass-through to an Engine
// with an optional memoization cache keyed by the call arguments.
type Client struct {
	engine Engine
	cache  *lru.Cache[string, string]
	log    observability.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client's logger.
func WithClientLogger(log observability.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient wraps an engine with an LRU cache of the given capacity.
// A capacity of zero or less disables caching entirely.
func NewClient(engine Engine, cacheSize int, opts ...ClientOption) *Client {
	c := &Client{engine: engine, log: observability.NopLogger{}}
	if cacheSize > 0 {
		// lru.New only fails for non-positive sizes.
		c.cache, _ = lru.New[string, string](cacheSize)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Translate implements Engine. Results are memoized per argument tuple;
// failures are never cached.
func (c *Client) Translate(ctx context.Context, from, to, text string, html bool) (string, error) {
	key := cacheKey(from, to, text, strconv.FormatBool(html))
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			c.log.Debug("translation cache hit", observability.String("from", from), observability.String("to", to))
			return cached, nil
		}
	}
	out, err := c.engine.Translate(ctx, from, to, text, html)
	if err != nil {
		return "", err
	}
	if c.cache != nil {
		c.cache.Add(key, out)
	}
	return out, nil
}

// cacheKey joins the arguments with a separator. Short keys stay literal so
// they remain inspectable; long ones collapse to a blake2b-256 hex digest.
func cacheKey(parts ...string) string {
	joined := strings.Join(parts, ":")
	if len(joined) <= maxLiteralKeyLen {
		return joined
	}
	sum := blake2b.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}
