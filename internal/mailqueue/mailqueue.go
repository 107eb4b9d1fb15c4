package mailqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
)

const QueueName = "email_queue"

type Publisher interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

// DeclareQueue 声明持久化的邮件队列，API 和 mail worker 都要调用
func DeclareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(
		QueueName, // 队列名称
		true,      // 是否持久化
		false,     // 是否自动删除
		false,     // 是否独占
		false,     // 是否不等待
		nil,       // 额外参数
	)
}

type AMQPPublisher struct {
	ch      *amqp.Channel
	timeout time.Duration
}

func NewAMQPPublisher(ch *amqp.Channel, timeout time.Duration) *AMQPPublisher {
	return &AMQPPublisher{
		ch:      ch,
		timeout: timeout,
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		QueueName,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Nop 在没有配置 RabbitMQ 时使用，确认邮件不会发送
type Nop struct{}

func (Nop) Publish(context.Context, domain.MailMessage) error { return nil }

type envelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// Decode 把队列中的消息还原成 MailMessage，Data 会被解析成对应邮件类型的结构体，
// 模板里才能按字段名取值
func Decode(body []byte) (domain.MailMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.MailMessage{}, err
	}

	msg := domain.MailMessage{Type: env.Type, To: env.To}
	switch env.Type {
	case domain.MailTypeSignupConfirmation:
		var data domain.SignupConfirmationMailData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return domain.MailMessage{}, err
		}
		msg.Data = data
	default:
		return domain.MailMessage{}, fmt.Errorf("unsupported mail type %q", env.Type)
	}

	return msg, nil
}
