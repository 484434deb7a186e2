package draft

// IDGenerator hands out unique identifiers for new entities
type IDGenerator interface {
	NextID() (int64, error)
}
