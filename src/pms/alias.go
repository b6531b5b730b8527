package pms

import (
	"hbs/src/types"
	"hbs/src/utils"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// The PMS is not consistent about field names: list responses use
// booking_id/start_date/end_date with a holder object, detail responses
// use id/check_in_date/check_out_date with flat guest_* fields. Every
// external field is therefore read through an ordered alias list and the
// first present alias wins.
var fieldAliases = map[string][]string{
	"booking_id":       {"booking_id", "id"},
	"check_in_date":    {"start_date", "check_in_date"},
	"check_out_date":   {"end_date", "check_out_date"},
	"guest_email":      {"holder.email", "guest_email"},
	"guest_phone":      {"holder.phone", "guest_phone"},
	"nationality":      {"holder.country", "guest_nationality"},
	"room_number":      {"assigned_room.name", "room_number"},
	"room_description": {"assigned_room.type", "room_description", "category.name"},
	"arrival_time":     {"arrival_time"},
}

// resolveField returns the first present alias value as a string.
func resolveField(record gjson.Result, field string) string {
	for _, alias := range fieldAliases[field] {
		if value := record.Get(alias); value.Exists() && value.String() != "" {
			return value.String()
		}
	}
	return ""
}

// ExternalReservation is one PMS booking record mapped through the alias
// table, with the raw payload kept for the sync ledger.
type ExternalReservation struct {
	BookingID        string
	GuestName        string
	GuestEmail       string
	GuestPhone       string
	GuestNationality string
	CheckInDate      time.Time
	CheckOutDate     time.Time
	ArrivalTime      *time.Time
	RoomNumber       string
	RoomDescription  string
	Status           types.ReservationStatus
	PaymentStatus    types.PaymentStatus
	Raw              string
}

// ParseExternalReservation maps one raw record. A record without a
// booking id or without both dates is a ReconciliationConflict: it cannot
// be keyed or windowed, so it is surfaced rather than guessed at.
func ParseExternalReservation(record gjson.Result) (*ExternalReservation, error) {
	raw := record.Raw

	bookingID := resolveField(record, "booking_id")
	if bookingID == "" {
		return nil, &types.ReconciliationConflict{
			Reason:  "record has no booking id under any known alias",
			Payload: raw,
		}
	}

	checkInRaw := resolveField(record, "check_in_date")
	checkOutRaw := resolveField(record, "check_out_date")
	if checkInRaw == "" || checkOutRaw == "" {
		return nil, &types.ReconciliationConflict{
			ExternalID: bookingID,
			Reason:     "record is missing check-in or check-out date under every known alias",
			Payload:    raw,
		}
	}
	checkIn, err := utils.ParseLocalDate(checkInRaw)
	if err != nil {
		return nil, &types.ReconciliationConflict{ExternalID: bookingID, Reason: err.Error(), Payload: raw}
	}
	checkOut, err := utils.ParseLocalDate(checkOutRaw)
	if err != nil {
		return nil, &types.ReconciliationConflict{ExternalID: bookingID, Reason: err.Error(), Payload: raw}
	}

	ext := &ExternalReservation{
		BookingID:        bookingID,
		GuestName:        guestName(record),
		GuestEmail:       resolveField(record, "guest_email"),
		GuestPhone:       resolveField(record, "guest_phone"),
		GuestNationality: resolveField(record, "nationality"),
		CheckInDate:      checkIn,
		CheckOutDate:     checkOut,
		RoomNumber:       resolveField(record, "room_number"),
		RoomDescription:  resolveField(record, "room_description"),
		Status:           mapStatus(record),
		PaymentStatus:    mapPaymentStatus(record),
		Raw:              raw,
	}
	if arrivalRaw := resolveField(record, "arrival_time"); arrivalRaw != "" {
		if arrival, err := time.Parse(time.RFC3339, arrivalRaw); err == nil {
			ext.ArrivalTime = &arrival
		}
	}
	return ext, nil
}

// guestName prefers the structured holder object, composing the full
// surname chain, and falls back to the flat guest_name field.
func guestName(record gjson.Result) string {
	name := record.Get("holder.name").String()
	surname := record.Get("holder.surname").String()
	if name != "" && surname != "" {
		full := name + " " + surname
		if second := record.Get("holder.second_surname").String(); second != "" {
			full += " " + second
		}
		return strings.TrimSpace(full)
	}
	if flat := record.Get("guest_name").String(); flat != "" {
		return flat
	}
	return "Unknown"
}

// mapStatus: the boolean checked_in/checked_out flags win over the
// textual status field; anything unrecognized is confirmed.
func mapStatus(record gjson.Result) types.ReservationStatus {
	if record.Get("checked_out").Bool() {
		return types.RESERVATION_CHECKED_OUT
	}
	if record.Get("checked_in").Bool() {
		return types.RESERVATION_CHECKED_IN
	}
	switch strings.ToLower(record.Get("status").String()) {
	case "checked_in":
		return types.RESERVATION_CHECKED_IN
	case "checked_out":
		return types.RESERVATION_CHECKED_OUT
	case "cancelled":
		return types.RESERVATION_CANCELLED
	case "no_show":
		return types.RESERVATION_NO_SHOW
	default:
		return types.RESERVATION_CONFIRMED
	}
}

// mapPaymentStatus derives the payment state from the paid_out /
// total_to_pay amounts when present, falling back to the textual field.
func mapPaymentStatus(record gjson.Result) types.PaymentStatus {
	paidOut := parseAmount(record.Get("paid_out"))
	totalToPay := parseAmount(record.Get("total_to_pay"))
	if totalToPay == 0 {
		totalToPay = parseAmount(record.Get("total_to_pay_accommodation"))
	}
	if totalToPay > 0 && paidOut >= totalToPay {
		return types.PAYMENT_PAID
	}
	if paidOut > 0 {
		return types.PAYMENT_PARTIALLY_PAID
	}
	switch strings.ToLower(record.Get("payment_status").String()) {
	case "paid":
		return types.PAYMENT_PAID
	case "partially_paid":
		return types.PAYMENT_PARTIALLY_PAID
	case "refunded":
		return types.PAYMENT_REFUNDED
	case "failed":
		return types.PAYMENT_FAILED
	default:
		return types.PAYMENT_PENDING
	}
}

// parseAmount reads a numeric field the PMS sometimes sends as a string.
func parseAmount(value gjson.Result) float64 {
	if value.Type == gjson.String {
		f, err := strconv.ParseFloat(value.String(), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return value.Float()
}
