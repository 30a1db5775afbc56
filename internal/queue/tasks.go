package queue

import (
	"encoding/json"

	"github.com/reelcraft/reelcraft/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderPlaced 下单后处理任务
	TaskOrderPlaced = constants.TaskOrderPlaced
)

// OrderPlacedPayload 下单任务载荷
type OrderPlacedPayload struct {
	OrderID uint   `json:"order_id"`
	OrderNo string `json:"order_no"`
	UserID  uint   `json:"user_id"`
}

// NewOrderPlacedTask 创建下单任务
func NewOrderPlacedTask(payload OrderPlacedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPlaced, body), nil
}

// ParseOrderPlacedPayload 解析下单任务载荷
func ParseOrderPlacedPayload(task *asynq.Task) (OrderPlacedPayload, error) {
	var payload OrderPlacedPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
