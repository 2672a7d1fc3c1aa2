package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPage        = "page"
	KeyTemplate    = "template"
	KeyBytesIn     = "bytes_in"
	KeyBytesOut    = "bytes_out"
	KeyMemoryLimit = "memory_limit"
	KeyCategory    = "error_category"
	KeyDurationMS  = "duration_ms"
	KeyPath        = "path"
	KeyDir         = "dir"
	KeyMethod      = "method"
	KeyStatus      = "status"
	KeyRequestID   = "request_id"
	KeyRemoteAddr  = "remote_addr"
	KeyUserAgent   = "user_agent"
	KeyAddr        = "addr"
	KeyCharset     = "charset"
	KeyCount       = "count"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Page(p string) slog.Attr          { return slog.String(KeyPage, p) }
func Template(name string) slog.Attr   { return slog.String(KeyTemplate, name) }
func BytesIn(n int) slog.Attr          { return slog.Int(KeyBytesIn, n) }
func BytesOut(n int) slog.Attr         { return slog.Int(KeyBytesOut, n) }
func MemoryLimit(n int) slog.Attr      { return slog.Int(KeyMemoryLimit, n) }
func Category(c string) slog.Attr      { return slog.String(KeyCategory, c) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Dir(d string) slog.Attr           { return slog.String(KeyDir, d) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func RequestID(id string) slog.Attr    { return slog.String(KeyRequestID, id) }
func RemoteAddr(a string) slog.Attr    { return slog.String(KeyRemoteAddr, a) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func Addr(a string) slog.Attr          { return slog.String(KeyAddr, a) }
func Charset(label string) slog.Attr   { return slog.String(KeyCharset, label) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
