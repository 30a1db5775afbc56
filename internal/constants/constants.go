package constants

// 订单状态常量
const (
	OrderStatusPlaced   = "placed"
	OrderStatusNotified = "notified"
	OrderStatusCanceled = "canceled"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 用户角色常量：注册即为买家，开通手作人身份后升级
const (
	UserRoleBuyer   = "buyer"
	UserRoleArtisan = "artisan"
)

// 异步任务类型
const (
	TaskOrderPlaced = "order:placed"
)

// 队列名称
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
