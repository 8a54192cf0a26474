package mq

import "time"

// 路由键
const (
	RoutingNotificationRequested = "notification.requested"
)

// InlineButton 内联键盘按钮，Data 是回调数据（例如 "done:3"）
type InlineButton struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// NotificationRequestedPayload 待发送到 Telegram 的消息
// DeliveryID 在入队时生成，消费端用它去重
type NotificationRequestedPayload struct {
	DeliveryID  string           `json:"delivery_id"`
	TraceID     string           `json:"trace_id,omitempty"`
	Text        string           `json:"text"`
	Keyboard    [][]InlineButton `json:"keyboard,omitempty"`
	RequestedAt time.Time        `json:"requested_at"`
}
