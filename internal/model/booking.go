package model

import (
    "encoding/json"
    "fmt"
    "time"
)

// localTimestampLayout is the zone-less form some clients send for
// requestedStartTime, e.g. "2023-11-22T14:22:32". It is read as UTC.
const localTimestampLayout = "2006-01-02T15:04:05.9999999"

// Booking is a taxi booking request together with the metadata the intake
// worker assigns when it commits the request.
//
// Fields:
//  ID                 – identity assigned at intake; nil while pending.
//  SubmitTime         – UTC intake timestamp; nil while pending.
//  CustomerName       – free text, not validated.
//  PickupAddress      – free text, not validated.
//  DestinationAddress – free text, not validated.
//  RequestedStartTime – requested pickup time; the ordering key for listings.
type Booking struct {
    ID                 *int64     `json:"id,omitempty"`
    SubmitTime         *time.Time `json:"submitTime,omitempty"`
    CustomerName       string     `json:"customerName"`
    PickupAddress      string     `json:"pickupAddress"`
    DestinationAddress string     `json:"destinationAddress"`
    RequestedStartTime time.Time  `json:"requestedStartTime"`
}

// Pending reports whether the booking has not been committed yet.
func (b Booking) Pending() bool {
    return b.ID == nil && b.SubmitTime == nil
}

// AsPending returns a copy with identity and submit time cleared.
func (b Booking) AsPending() Booking {
    b.ID = nil
    b.SubmitTime = nil
    return b
}

// Commit returns a copy carrying the given identity and submit time (in UTC).
func (b Booking) Commit(id int64, at time.Time) Booking {
    at = at.UTC()
    b.ID = &id
    b.SubmitTime = &at
    return b
}

// Clone returns a deep copy so that callers never share pointers.
func (b Booking) Clone() Booking {
    if b.ID != nil {
        id := *b.ID
        b.ID = &id
    }
    if b.SubmitTime != nil {
        t := *b.SubmitTime
        b.SubmitTime = &t
    }
    return b
}

// UnmarshalJSON decodes a booking, accepting requestedStartTime either as
// RFC 3339 or in the zone-less local form.
func (b *Booking) UnmarshalJSON(data []byte) error {
    type plain Booking
    aux := struct {
        *plain
        RequestedStartTime json.RawMessage `json:"requestedStartTime"`
    }{plain: (*plain)(b)}
    if err := json.Unmarshal(data, &aux); err != nil {
        return err
    }
    if len(aux.RequestedStartTime) == 0 || string(aux.RequestedStartTime) == "null" {
        return nil
    }
    var raw string
    if err := json.Unmarshal(aux.RequestedStartTime, &raw); err != nil {
        return fmt.Errorf("requestedStartTime: %w", err)
    }
    t, err := ParseTimestamp(raw)
    if err != nil {
        return err
    }
    b.RequestedStartTime = t
    return nil
}

// ParseTimestamp parses an RFC 3339 timestamp, falling back to the
// zone-less local form interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, nil
    }
    t, err := time.ParseInLocation(localTimestampLayout, s, time.UTC)
    if err != nil {
        return time.Time{}, fmt.Errorf("requestedStartTime %q: not an RFC 3339 or local timestamp", s)
    }
    return t, nil
}
