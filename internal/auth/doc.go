// Package auth は認証サービスの内部実装を提供する。
//
// SQLiteに保存されたユーザーレコードで資格情報を照合し、HS256で署名したBearerトークンを発行する。
// トークンはサーバー側に保存しないステートレスなトークンであり、失効リストは持たない。
//
// 主な機能:
//   - HTTP Basic認証によるログインとトークン発行（POST /login）
//   - Bearerトークンの検証（POST /validate）
//   - データベース疎通確認（GET /health）
//   - 開発用のユーザー一覧（GET /users）
package auth
