package basic

// Response 同步接口的通用响应头
type Response struct {
	Code int32  `json:"code"`
	Msg  string `json:"msg"`
}
