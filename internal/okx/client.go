package okx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/config"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Client 为 OKX v5 REST 接口的轻量封装。
// 只做单次调用与签名，重试由上层 retry 包统一负责。
type Client struct {
	cfg    config.OKXConfig
	http   *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewClient 构造 OKX 客户端。
func NewClient(cfg config.OKXConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
		now:    time.Now,
	}
}

// HasCredentials 判断客户端是否具备签名所需凭证。
func (c *Client) HasCredentials() bool {
	return c.cfg.HasCredentials()
}

func (c *Client) sign(ts, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(ts + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// do 发送一次已签名的请求并解析响应信封。
// requestPath 需携带查询串，签名覆盖完整路径。
func (c *Client) do(ctx context.Context, op, method, requestPath string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: 序列化请求失败: %w", op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+requestPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: 构造请求失败: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.HasCredentials() {
		ts := c.now().UTC().Format(timestampLayout)
		req.Header.Set("OK-ACCESS-KEY", c.cfg.APIKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(ts, method, requestPath, string(payload)))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.cfg.Passphrase)
	}
	if c.cfg.Simulated {
		req.Header.Set("x-simulated-trading", "1")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: 读取响应失败: %w", op, err)
	}

	c.logger.Debug("okx 调用完成",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode/100 != 2 {
		return &HTTPError{Op: op, Status: resp.StatusCode, Body: string(data)}
	}

	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%s: 解析响应失败: %w; body=%s", op, err, string(data))
	}
	if env.Code != "0" {
		return &APIError{Op: op, Code: env.Code, Msg: env.Msg}
	}

	if out != nil {
		if err := sonic.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s: 解析数据失败: %w; body=%s", op, err, string(data))
		}
	}

	return nil
}
