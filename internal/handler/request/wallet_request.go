package request

// ListAddressesRequest 地址列表查询参数
type ListAddressesRequest struct {
	Chain string `form:"chain" binding:"omitempty,hdchain"`
	Start uint32 `form:"start"`
	Count uint32 `form:"count" binding:"omitempty,min=1,max=100"`
}

// ParsePathRequest 路径解析参数
type ParsePathRequest struct {
	Path string `form:"path" binding:"required"`
}

// ChecksumRequest 地址校验参数
type ChecksumRequest struct {
	Address string `form:"address" binding:"required"`
}
