package util

// S2S 鉴权请求头
const (
	ServiceAuthorizationHeader = "ServiceAuthorization"
	BearerPrefix               = "Bearer "
)

// 批量扫描上传令牌
const BulkScanObjectPrefix = "bulkscan/"
