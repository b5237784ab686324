package svg

// エラーコード一覧。HTTPステータスへの対応は http.go の respondWithError を参照。
const (
	CodeInvalidInput   = "INVALID_INPUT"
	CodeLimitExceeded  = "LIMIT_EXCEEDED"
	CodeConvertFailed  = "CONVERT_FAILED"
	CodeEmptyResult    = "EMPTY_RESULT"
	CodeResultNotFound = "RESULT_NOT_FOUND"
	CodeFileNotFound   = "FILE_NOT_FOUND"
)

// Error はクライアントへ返却するアプリケーションエラーを表します。
type Error struct {
	Code    string
	Message string
	cause   error
}

// Error は error インターフェースを実装します。
func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.Message + " (" + e.cause.Error() + ")"
	}
	return e.Code + ": " + e.Message
}

// Unwrap は原因となったエラーを返します。
func (e *Error) Unwrap() error {
	return e.cause
}

func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}
