package orders

const (
	TopicOrders = "wms.orders"
	TopicStock  = "wms.stock"
)

// Partition key = order_id / product_id, supaya event satu entitas tetap urut.
func PartitionKey(id string) []byte { return []byte(id) }
