package config

// Error 表示致命的配置错误，Hint 提示操作者如何修复。
type Error struct {
	Err  error
	Hint string
}

func (e *Error) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "（" + e.Hint + "）"
}

func (e *Error) Unwrap() error {
	return e.Err
}
