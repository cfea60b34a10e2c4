package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/nao1215/authgate/pkg/httpclient"
)

// ErrMethodNotSupported は転送できないHTTPメソッドが指定されたことを表す。
var ErrMethodNotSupported = errors.New("転送できないHTTPメソッドです")

// Forwarder は受け取ったリクエストを認証サービスへ転送する。
// リトライやキャッシュは行わず、1リクエストにつき下流呼び出しは1回のみ。
type Forwarder struct {
	// client は認証サービス向けのHTTPクライアント。
	client *httpclient.Client
	// logger は構造化ロガー。
	logger *zap.Logger
}

// NewForwarder は新しいForwarderを生成する。
func NewForwarder(client *httpclient.Client, logger *zap.Logger) *Forwarder {
	return &Forwarder{client: client, logger: logger}
}

// Forward はreqのヘッダー（Hostを除く）とボディを引き継いでpathへ転送し、下流のレスポンスを返す。
// GETはボディ無し、POSTは受信したボディをそのまま送る。それ以外はErrMethodNotSupportedを返す。
// クライアントが切断しても下流呼び出しは中断しない。
func (f *Forwarder) Forward(ctx context.Context, method, path string, req *http.Request) (*httpclient.Response, error) {
	var body []byte
	switch method {
	case http.MethodGet:
	case http.MethodPost:
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディの読み取りに失敗: %w", err)
		}
		body = b
	default:
		return nil, fmt.Errorf("%w: %s", ErrMethodNotSupported, method)
	}

	resp, err := f.client.Do(context.WithoutCancel(ctx), method, path, forwardHeader(req.Header), body)
	if err != nil {
		f.logger.Error("認証サービスへの転送に失敗しました",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("target", f.client.BaseURL()+path),
			zap.Error(err),
		)
		return nil, err
	}

	f.logger.Info("認証サービスへ転送しました",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return resp, nil
}

// forwardHeader は下流へ送るヘッダーを組み立てる。
// Accept-Encodingを外すとトランスポートが圧縮を透過的に解凍する。
func forwardHeader(src http.Header) http.Header {
	header := src.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Del("Host")
	header.Del("Content-Length")
	header.Del("Accept-Encoding")
	return header
}
