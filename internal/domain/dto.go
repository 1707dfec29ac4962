package domain

// CartLine is one line of a checkout request as sent by the UI.
type CartLine struct {
	DrinkID   string         `json:"drinkId"`
	DrinkName string         `json:"drinkName"`
	Quantity  int            `json:"quantity"`
	Calories  int            `json:"calories"`
	Ratios    map[string]int `json:"ratios,omitempty"`
}

type CheckoutRequest struct {
	Items []CartLine `json:"items"`
	Mood  string     `json:"mood,omitempty"`
}

// PositionInfo is the queue snapshot for a single entry.
type PositionInfo struct {
	Position        int    `json:"position"`
	Ahead           int    `json:"ahead"`
	Status          Status `json:"status"`
	EtaSeconds      int    `json:"etaSeconds"`
	EtaAheadSeconds int    `json:"etaAheadSeconds"`
	EtaThisSeconds  int    `json:"etaThisSeconds"`
	EstSeconds      int    `json:"estSeconds"`
}

type CheckoutResponse struct {
	OrderID  string       `json:"orderId"`
	OrderIDs []string     `json:"orderIds"`
	Count    int          `json:"count"`
	Queue    PositionInfo `json:"queue"`
}

// WorkerJob is the compact payload the dispensing controller polls for.
// Only the first remaining item is exposed; the controller acts on one
// unit at a time and has very little memory.
type WorkerJob struct {
	ID              string         `json:"id"`
	DrinkID         string         `json:"drinkId"`
	DrinkName       string         `json:"drinkName"`
	Quantity        int            `json:"quantity"`
	Ratios          map[string]int `json:"ratios,omitempty"`
	RemainingItems  int            `json:"remainingItems"`
	EtaSeconds      int            `json:"etaSeconds"`
	QueuePosition   int            `json:"queuePosition"`
	QueueAhead      int            `json:"queueAhead"`
	QueueEtaSeconds int            `json:"queueEtaSeconds"`
	StepSeconds     int            `json:"stepSeconds"`
	PrepSeconds     int            `json:"prepSeconds"`
}

// MyQueueEntry is an active entry of the caller annotated with its
// position snapshot.
type MyQueueEntry struct {
	OrderID     string     `json:"orderId"`
	Status      Status     `json:"status"`
	CreatedAt   string     `json:"ts"`
	Mood        string     `json:"mood,omitempty"`
	Items       []ItemUnit `json:"items"`
	DrinkID     string     `json:"drinkId"`
	DrinkName   string     `json:"drinkName"`
	StepSeconds int        `json:"stepSeconds"`
	PositionInfo
}
