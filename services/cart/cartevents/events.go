package cartevents

const (
	TopicName       = "cart"
	itemAddedName   = TopicName + ".item.added"
	itemUpdatedName = TopicName + ".item.updated"
	itemRemovedName = TopicName + ".item.removed"
	cartClearedName = TopicName + ".cleared"

	// one shopper, one cart
	aggregateName = TopicName
)

type ItemAdded struct {
	ProductID   int
	Quantity    int
	NewQuantity int
}

func (e ItemAdded) GetEventTypeName() string {
	return itemAddedName
}

func (e ItemAdded) GetAggregateName() string {
	return aggregateName
}

type ItemUpdated struct {
	ProductID int
	Quantity  int
}

func (e ItemUpdated) GetEventTypeName() string {
	return itemUpdatedName
}

func (e ItemUpdated) GetAggregateName() string {
	return aggregateName
}

type ItemRemoved struct {
	ProductID int
}

func (e ItemRemoved) GetEventTypeName() string {
	return itemRemovedName
}

func (e ItemRemoved) GetAggregateName() string {
	return aggregateName
}

type CartCleared struct {
	ProductIDs []int
}

func (e CartCleared) GetEventTypeName() string {
	return cartClearedName
}

func (e CartCleared) GetAggregateName() string {
	return aggregateName
}
