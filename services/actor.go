package services

// Actor 操作者身份，由请求入口显式构造后逐层传递，
// 审计归属只依赖入参，不读取任何隐式请求上下文
type Actor struct {
	UserID    int64
	IPAddress string
	UserAgent string
}
