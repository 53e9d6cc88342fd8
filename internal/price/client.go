// Package price предоставляет клиент внешнего ценового оракула для фондов платформы.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/fundvault/internal/model"
)

var (
	// ErrUnknownFund возвращается для неизвестного идентификатора фонда.
	ErrUnknownFund = errors.New("unknown fund")
	// ErrRateLimited возвращается, когда оракул ответил 429.
	ErrRateLimited = errors.New("price oracle rate limited")
	// ErrNoPrice возвращается, если оракул не вернул цену и запасной цены нет.
	ErrNoPrice = errors.New("price unavailable")
)

// coinIDs сопоставляет фонды идентификаторам монет оракула.
var coinIDs = map[model.Fund]string{
	model.FundGold:    "pax-gold",
	model.FundSilver:  "kinesis-silver",
	model.FundBitcoin: "bitcoin",
}

// fallbackPrices используются для металлов, если оракул недоступен.
var fallbackPrices = map[model.Fund]decimal.Decimal{
	model.FundGold:   decimal.NewFromInt(2300),
	model.FundSilver: decimal.NewFromInt(27),
}

// Cache хранит полученные цены между запросами.
type Cache interface {
	Get(ctx context.Context, fund model.Fund) (decimal.Decimal, bool, error)
	Set(ctx context.Context, fund model.Fund, price decimal.Decimal, ttl time.Duration) error
}

// Client инкапсулирует HTTP-взаимодействие с ценовым оракулом.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// Option настраивает Client.
type Option func(*Client)

// WithCache включает кэширование цен.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithLogger задаёт журнал для ошибок кэша и переходов на запасную цену.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient создаёт HTTP-клиент оракула по указанному адресу.
// Ошибки соединения и ответы 5xx повторяются с экспоненциальной задержкой, 429 не повторяется.
func NewClient(baseURL string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc.StandardClient(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// USDPrice возвращает цену одной единицы фонда в долларах.
// Доллар всегда стоит 1.00; для золота и серебра при ошибке оракула возвращается запасная цена.
func (c *Client) USDPrice(ctx context.Context, fund model.Fund) (decimal.Decimal, error) {
	if !fund.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownFund, fund)
	}
	if fund == model.FundDollar {
		return decimal.NewFromInt(1), nil
	}

	if c.cache != nil {
		p, ok, err := c.cache.Get(ctx, fund)
		if err != nil {
			c.logger.Warn("price cache read error", zap.String("fund", string(fund)), zap.Error(err))
		} else if ok {
			return p, nil
		}
	}

	p, err := c.fetch(ctx, fund)
	if err != nil {
		if fb, ok := fallbackPrices[fund]; ok {
			c.logger.Warn("price oracle error, using fallback price",
				zap.String("fund", string(fund)),
				zap.String("fallback", fb.String()),
				zap.Error(err),
			)
			return fb, nil
		}
		return decimal.Zero, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, fund, p, c.cacheTTL); err != nil {
			c.logger.Warn("price cache write error", zap.String("fund", string(fund)), zap.Error(err))
		}
	}
	return p, nil
}

func (c *Client) fetch(ctx context.Context, fund model.Fund) (decimal.Decimal, error) {
	if c == nil || c.baseURL == "" {
		return decimal.Zero, fmt.Errorf("price oracle not configured")
	}

	coin := coinIDs[fund]

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	q := url.Values{}
	q.Set("ids", coin)
	q.Set("vs_currencies", "usd")
	endpoint := fmt.Sprintf("%s/simple/price?%s", base, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		if seconds, parseErr := strconv.Atoi(retryAfter); parseErr == nil {
			return decimal.Zero, fmt.Errorf("%w: retry after %ds", ErrRateLimited, seconds)
		}
		return decimal.Zero, ErrRateLimited
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return decimal.Zero, fmt.Errorf("decode response: %w", err)
	}

	raw, ok := result[coin]["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoPrice, coin)
	}

	p, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price: %w", err)
	}
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive price %s", ErrNoPrice, p)
	}

	return p, nil
}
