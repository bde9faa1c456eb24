package pkg

// EndpointHit 统计服务 /hit 接口与 kafka 消息共用的访问记录
type EndpointHit struct {
	App       string   `json:"app" binding:"required,max=64"`
	URI       string   `json:"uri" binding:"required,max=512"`
	IP        string   `json:"ip" binding:"max=64"`
	Timestamp DateTime `json:"timestamp"`
}
