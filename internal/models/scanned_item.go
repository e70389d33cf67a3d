// server/internal/models/scanned_item.go
package models

// IntakeState is the per-item state machine of the batch intake workflow:
// QUEUED -> EXTRACTING -> READY | FAILED. Manual edits are allowed in any
// state except EXTRACTING.
type IntakeState string

const (
	IntakeQueued     IntakeState = "QUEUED"
	IntakeExtracting IntakeState = "EXTRACTING"
	IntakeReady      IntakeState = "READY"
	IntakeFailed     IntakeState = "FAILED"
)

// ScannedData are the editable fields of an intake item, filled by OCR
// and corrected by hand.
type ScannedData struct {
	Name       string   `bson:"name" json:"name"`
	Phone      string   `bson:"phone" json:"phone"`
	Address    string   `bson:"address" json:"address"`
	PostalCode string   `bson:"postalCode" json:"postalCode"`
	City       string   `bson:"city" json:"city"`
	Complement string   `bson:"complement" json:"complement"`
	Lat        *float64 `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng        *float64 `bson:"lng,omitempty" json:"lng,omitempty"`
}

// ScannedItem is a transient intake entry. It lives in the draft record
// until it is committed as a Delivery or discarded; it never enters the
// delivery collection by itself.
type ScannedItem struct {
	TempID       string      `bson:"tempId" json:"tempId"`
	ImagePreview string      `bson:"imagePreview,omitempty" json:"imagePreview,omitempty"`
	State        IntakeState `bson:"state" json:"state"`
	CEPLoading   bool        `bson:"isCepLoading,omitempty" json:"isCepLoading,omitempty"`
	Error        string      `bson:"error,omitempty" json:"error,omitempty"`
	Data         ScannedData `bson:"data" json:"data"`
}

// Valid reports whether the item can be committed as a delivery.
// Name and address are the only required fields.
func (s ScannedItem) Valid() bool {
	return s.Data.Name != "" && s.Data.Address != ""
}
