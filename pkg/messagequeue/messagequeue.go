package messagequeue

// MessageQueue abstracts a durable queue for asynchronous event delivery.
// The application publishes score events on it; consumers live outside this
// service (analytics pipelines, notification workers).
type MessageQueue interface {
	Publish(queueName string, body []byte) error
	Consume(queueName string, handler func(body []byte)) error
	Close() error
}
