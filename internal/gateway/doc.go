// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 認証系のリクエスト（/login, /validate, /auth/health, /auth/users）を
// 認証サービスへそのまま転送し、下流サービスのヘルスを集約して返す。
// 下流の応答はステータスコードとボディを変えずに中継し、
// 通信失敗はタイムアウト(504)、接続不可(503)、その他(500)に分類する。
package gateway
