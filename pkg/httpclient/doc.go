// Package httpclient は下流サービスへのHTTP通信を行うクライアントを提供する。
//
// Gatewayが認証サービスへリクエストを転送する際、およびヘルスチェックを行う際に使用する。
// 通信失敗はタイムアウト（ErrTimeout）と接続不可（ErrUnavailable）に分類して返すため、
// 呼び出し側はerrors.Isでそれぞれ504/503に対応付けられる。
// リトライやサーキットブレーカーは持たず、1回の呼び出しは1回の試行で完結する。
package httpclient
