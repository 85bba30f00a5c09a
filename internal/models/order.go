package models

// Canonical product names. Parsed order lines always carry one of these
// unless the normalizer could not recognize the raw token, in which case
// the raw token is kept as-is.
const (
	ProductA = "ProductA"
	ProductB = "ProductB"
	ProductC = "ProductC"
)

// OrderLine is a single parsed order entry: one company ordering one
// product. SourceTimestamp is the id of the chat message the line was
// parsed from; it is attached after parsing and never changes afterwards.
type OrderLine struct {
	Company         string `json:"company"`
	Product         string `json:"product"`
	Count           int    `json:"count"`
	SourceTimestamp string `json:"source_timestamp,omitempty"`
}

// OrderBatch is the set of order lines parsed from one message. It is
// what travels through the confirmation card and what the sync engine
// consumes on approval.
type OrderBatch struct {
	ChannelID       string      `json:"channel_id"`
	SourceTimestamp string      `json:"source_timestamp"`
	Lines           []OrderLine `json:"lines"`
}

// Stamp attaches the originating message identity to the batch and to
// every line in it.
func (b *OrderBatch) Stamp(channelID, messageID string) {
	b.ChannelID = channelID
	b.SourceTimestamp = messageID
	for i := range b.Lines {
		b.Lines[i].SourceTimestamp = messageID
	}
}

// Empty reports whether the batch has no lines.
func (b *OrderBatch) Empty() bool {
	return len(b.Lines) == 0
}
