// server/internal/models/delivery.go
package models

import "time"

// DeliveryStatus is the lifecycle state of a delivery. PENDING deliveries
// form the active route; COMPLETED and CANCELED are terminal.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "PENDING"
	StatusCompleted DeliveryStatus = "COMPLETED"
	StatusCanceled  DeliveryStatus = "CANCELED"
)

// Address holds the destination of a delivery. Lat/Lng are optional;
// deliveries without coordinates are excluded from map rendering.
type Address struct {
	FullAddress string   `bson:"fullAddress" json:"fullAddress"`
	PostalCode  string   `bson:"postalCode" json:"postalCode"`
	City        string   `bson:"city,omitempty" json:"city,omitempty"`
	Notes       string   `bson:"notes,omitempty" json:"notes,omitempty"`
	Lat         *float64 `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng         *float64 `bson:"lng,omitempty" json:"lng,omitempty"`
}

// HasCoordinates reports whether the address can be placed on a map.
func (a Address) HasCoordinates() bool {
	return a.Lat != nil && a.Lng != nil
}

// Proof is the proof-of-delivery bundle recorded at completion.
// SignatureURL is set only when the receiver actually signed.
type Proof struct {
	PhotoURL             string `bson:"photoURL" json:"photoUrl"`
	SignatureURL         string `bson:"signatureURL,omitempty" json:"signatureUrl,omitempty"`
	ReceiverName         string `bson:"receiverName" json:"receiverName"`
	ReceiverDoc          string `bson:"receiverDoc" json:"receiverDoc"`
	ReceiverRelationship string `bson:"receiverRelationship,omitempty" json:"receiverRelationship,omitempty"`
	Notes                string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Delivery is a parcel with a destination and lifecycle status.
// CompletedAt and Proof are set together when the status becomes
// COMPLETED and are never present on PENDING or CANCELED records.
type Delivery struct {
	ID           string         `bson:"id" json:"id"`
	CustomerName string         `bson:"customerName" json:"customerName"`
	Phone        string         `bson:"phone,omitempty" json:"phone,omitempty"`
	Address      Address        `bson:"address" json:"address"`
	Status       DeliveryStatus `bson:"status" json:"status"`
	CreatedAt    time.Time      `bson:"createdAt" json:"createdAt"`
	CompletedAt  *time.Time     `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Proof        *Proof         `bson:"proof,omitempty" json:"proof,omitempty"`
}
