package pms

import (
	"hbs/src/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseExternalReservationListShape(t *testing.T) {
	record := gjson.Parse(`{
		"booking_id": "18224831",
		"start_date": "2026-09-01",
		"end_date": "2026-09-04",
		"holder": {
			"name": "Ana",
			"surname": "Gomez",
			"second_surname": "Lopez",
			"email": "ana@example.com",
			"phone": "+573001112233",
			"country": "CO"
		},
		"assigned_room": {"name": "204", "type": "Doble Superior"},
		"total_to_pay": "450000",
		"paid_out": "450000"
	}`)

	ext, err := ParseExternalReservation(record)
	require.NoError(t, err)
	assert.Equal(t, "18224831", ext.BookingID)
	assert.Equal(t, "Ana Gomez Lopez", ext.GuestName)
	assert.Equal(t, "ana@example.com", ext.GuestEmail)
	assert.Equal(t, "+573001112233", ext.GuestPhone)
	assert.Equal(t, "CO", ext.GuestNationality)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), ext.CheckInDate)
	assert.Equal(t, time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC), ext.CheckOutDate)
	assert.Equal(t, "204", ext.RoomNumber)
	assert.Equal(t, "Doble Superior", ext.RoomDescription)
	assert.Equal(t, types.PAYMENT_PAID, ext.PaymentStatus)
}

func TestParseExternalReservationDetailShape(t *testing.T) {
	record := gjson.Parse(`{
		"id": 99120,
		"check_in_date": "2026-10-10",
		"check_out_date": "2026-10-12",
		"guest_name": "Hans Muller",
		"guest_email": "hans@example.com",
		"guest_phone": "+4915211111111",
		"guest_nationality": "DE",
		"room_number": "301",
		"payment_status": "partially_paid"
	}`)

	ext, err := ParseExternalReservation(record)
	require.NoError(t, err)
	assert.Equal(t, "99120", ext.BookingID)
	assert.Equal(t, "Hans Muller", ext.GuestName)
	assert.Equal(t, "DE", ext.GuestNationality)
	assert.Equal(t, "301", ext.RoomNumber)
	assert.Equal(t, types.PAYMENT_PARTIALLY_PAID, ext.PaymentStatus)
}

func TestParseExternalReservationMissingBookingID(t *testing.T) {
	record := gjson.Parse(`{"start_date": "2026-09-01", "end_date": "2026-09-02"}`)
	_, err := ParseExternalReservation(record)
	var conflict *types.ReconciliationConflict
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Reason, "booking id")
}

func TestParseExternalReservationMissingDates(t *testing.T) {
	record := gjson.Parse(`{"booking_id": "777", "end_date": "2026-09-02"}`)
	_, err := ParseExternalReservation(record)
	var conflict *types.ReconciliationConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "777", conflict.ExternalID)
}

func TestMapStatusFlagsWinOverText(t *testing.T) {
	ext, err := ParseExternalReservation(gjson.Parse(`{
		"booking_id": "1", "start_date": "2026-01-01", "end_date": "2026-01-02",
		"status": "confirmed", "checked_in": true
	}`))
	require.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CHECKED_IN, ext.Status)

	ext, err = ParseExternalReservation(gjson.Parse(`{
		"booking_id": "2", "start_date": "2026-01-01", "end_date": "2026-01-02",
		"checked_in": true, "checked_out": true
	}`))
	require.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CHECKED_OUT, ext.Status)

	ext, err = ParseExternalReservation(gjson.Parse(`{
		"booking_id": "3", "start_date": "2026-01-01", "end_date": "2026-01-02",
		"status": "cancelled"
	}`))
	require.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CANCELLED, ext.Status)

	ext, err = ParseExternalReservation(gjson.Parse(`{
		"booking_id": "4", "start_date": "2026-01-01", "end_date": "2026-01-02",
		"status": "something_new"
	}`))
	require.NoError(t, err)
	assert.Equal(t, types.RESERVATION_CONFIRMED, ext.Status)
}

func TestMapPaymentStatusFromAmounts(t *testing.T) {
	base := `{"booking_id": "1", "start_date": "2026-01-01", "end_date": "2026-01-02",`

	ext, err := ParseExternalReservation(gjson.Parse(base + `"total_to_pay": 100, "paid_out": 0}`))
	require.NoError(t, err)
	assert.Equal(t, types.PAYMENT_PENDING, ext.PaymentStatus)

	ext, err = ParseExternalReservation(gjson.Parse(base + `"total_to_pay": 100, "paid_out": 40}`))
	require.NoError(t, err)
	assert.Equal(t, types.PAYMENT_PARTIALLY_PAID, ext.PaymentStatus)

	// amounts arrive as strings on some endpoints
	ext, err = ParseExternalReservation(gjson.Parse(base + `"total_to_pay_accommodation": "200.50", "paid_out": "200.50"}`))
	require.NoError(t, err)
	assert.Equal(t, types.PAYMENT_PAID, ext.PaymentStatus)
}

func TestParseArrivalTime(t *testing.T) {
	ext, err := ParseExternalReservation(gjson.Parse(`{
		"booking_id": "1", "start_date": "2026-01-01", "end_date": "2026-01-02",
		"arrival_time": "2026-01-01T23:15:00Z"
	}`))
	require.NoError(t, err)
	require.NotNil(t, ext.ArrivalTime)
	assert.Equal(t, 23, ext.ArrivalTime.Hour())
}
