package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout は下流サービス呼び出しのデフォルトタイムアウト。
const DefaultTimeout = 30 * time.Second

var (
	// ErrTimeout は下流サービスが制限時間内に応答しなかったことを表す。
	ErrTimeout = errors.New("下流サービスがタイムアウトしました")
	// ErrUnavailable は下流サービスに接続できなかったことを表す（接続拒否、DNS解決失敗、切断など）。
	ErrUnavailable = errors.New("下流サービスに接続できません")
)

// Client は下流サービス呼び出し用のHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先サービスのベースURL。
	baseURL string
}

// Response は下流サービスからのレスポンス。
type Response struct {
	// StatusCode は下流サービスが返したステータスコード。
	StatusCode int
	// Header は下流サービスが返したレスポンスヘッダー。
	Header http.Header
	// Body はレスポンスボディ全体。
	Body []byte
}

// IsJSON はContent-TypeがJSONを示している場合にtrueを返す。
func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先サービスのベースURL（例: "http://auth-service:8000"）を指定する。
// timeoutはリクエスト送信からボディ読み取り完了までの全体に適用される。0以下の場合はDefaultTimeoutを使う。
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// BaseURL は接続先サービスのベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do はベースURLとpathを連結したURLにリクエストを送信し、レスポンス全体を読み取って返す。
// headerはそのまま送信する。bodyがnilの場合はボディ無しで送信する。
// 下流サービスのステータスコードは成功・失敗にかかわらずそのまま返す。
func (c *Client) Do(ctx context.Context, method, path string, header http.Header, body []byte) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// Get はベースURLとpathを連結したURLにヘッダー無しのGETリクエストを送信する。
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, nil)
}

// classify は通信エラーをErrTimeoutまたはErrUnavailableでラップする。
// http.Client.Doのエラーは全て*url.Errorのため、タイムアウト以外の送信失敗（接続拒否、DNS解決失敗、
// 未対応スキームなど）は意図的にまとめてErrUnavailableとする。ボディ読み取り中の切断も同様。
// どちらにも該当しない場合（リクエスト組み立ての失敗など）は元のエラーをそのまま返す。
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
