package constants

// ItemStatus is the terminal state of one item in an ingestion batch.
type ItemStatus string

const (
	ItemSkipped   ItemStatus = "SKIPPED"   // unsupported extension, never extracted
	ItemRejected  ItemStatus = "REJECTED"  // no usable fields, duplicate, or store failure
	ItemPersisted ItemStatus = "PERSISTED" // record written
)

// SkippedDisplayLimit caps how many skipped filenames a batch summary shows.
const SkippedDisplayLimit = 5
