package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderProcessTime はリクエストの処理時間（秒）を返すレスポンスヘッダー。
	HeaderProcessTime = "X-Process-Time"
	// HeaderGatewayVersion はGatewayのバージョンを返すレスポンスヘッダー。
	HeaderGatewayVersion = "X-Gateway-Version"
)

// ProcessTime は全レスポンスに処理時間とGatewayバージョンのヘッダーを付与するGinミドルウェアを返す。
// ヘッダーはレスポンスの書き出し直前に設定するため、ハンドラ内で中断されたレスポンスにも付与される。
func ProcessTime(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		w := &timingWriter{
			ResponseWriter: c.Writer,
			start:          time.Now(),
			version:        version,
		}
		c.Writer = w
		c.Next()
		// ボディもステータスも書かれなかった場合
		w.stamp()
	}
}

// timingWriter はヘッダー送出の直前に処理時間を書き込むgin.ResponseWriter。
type timingWriter struct {
	gin.ResponseWriter
	start   time.Time
	version string
	stamped bool
}

// stamp は一度だけ処理時間ヘッダーを設定する。
func (w *timingWriter) stamp() {
	if w.stamped || w.ResponseWriter.Written() {
		return
	}
	w.stamped = true
	elapsed := time.Since(w.start).Seconds()
	w.Header().Set(HeaderProcessTime, strconv.FormatFloat(elapsed, 'f', -1, 64))
	w.Header().Set(HeaderGatewayVersion, w.version)
}

func (w *timingWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timingWriter) Write(data []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(data)
}

func (w *timingWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}
