package redis

// Key prefixes for primary entity storage.
const (
	prefixWebhook     = "leadwire:wh:"
	prefixDelivery    = "leadwire:del:"
	prefixDLQ         = "leadwire:dlq:"
	prefixLead        = "leadwire:lead:"
	prefixInteraction = "leadwire:int:"
	prefixProduct     = "leadwire:prod:"
	prefixUser        = "leadwire:user:"
)

// Key names for sorted set indexes.
const (
	zWebhookAll      = "leadwire:z:wh:all"
	zDeliveryWebhook = "leadwire:z:del:wh:" // + webhook ID
	zDeliveryPending = "leadwire:z:del:pending"
	zDLQAll          = "leadwire:z:dlq:all"
	zDLQWebhook      = "leadwire:z:dlq:wh:" // + webhook ID
	zLeadAll         = "leadwire:z:lead:all"
	zInteractionLead = "leadwire:z:int:lead:" // + lead ID
	zProductAll      = "leadwire:z:prod:all"
	zUserAll         = "leadwire:z:user:all"
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}
