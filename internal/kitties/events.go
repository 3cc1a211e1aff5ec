package kitties

// Event is a notification emitted by a committed operation. The set is closed.
type Event interface {
	Kind() string
	event()
}

type Created struct {
	Owner AccountID `json:"owner"`
	ID    KittyID   `json:"id"`
}

type PriceSet struct {
	Owner AccountID `json:"owner"`
	ID    KittyID   `json:"id"`
	Price *Balance  `json:"price"`
}

type Transferred struct {
	From AccountID `json:"from"`
	To   AccountID `json:"to"`
	ID   KittyID   `json:"id"`
}

type Bought struct {
	Buyer  AccountID `json:"buyer"`
	Seller AccountID `json:"seller"`
	ID     KittyID   `json:"id"`
	Price  Balance   `json:"price"`
}

type Bred struct {
	Owner   AccountID  `json:"owner"`
	Parents [2]KittyID `json:"parents"`
	Child   KittyID    `json:"child"`
}

func (Created) Kind() string     { return "Created" }
func (PriceSet) Kind() string    { return "PriceSet" }
func (Transferred) Kind() string { return "Transferred" }
func (Bought) Kind() string      { return "Bought" }
func (Bred) Kind() string        { return "Bred" }

func (Created) event()     {}
func (PriceSet) event()    {}
func (Transferred) event() {}
func (Bought) event()      {}
func (Bred) event()        {}
