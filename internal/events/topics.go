package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderCreated    = "order.created"
	TopicOrderPaid       = "order.paid"
	TopicOrderCanceled   = "order.canceled"
	TopicReturnRequested = "return.requested"
	TopicReturnResolved  = "return.resolved"
	TopicUserRegistered  = "user.registered"
)
