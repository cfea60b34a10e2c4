// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// パニックリカバリ、構造化リクエストログ、CORS、セキュリティヘッダー、
// 処理時間ヘッダーの付与、Bearerトークンの取り出しなど、
// 認証サービスとGatewayサービスで共通して使用するミドルウェアを含む。
package middleware
