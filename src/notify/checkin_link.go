package notify

import (
	"fmt"
	"hbs/src/config"
	"hbs/src/models"
	"net/url"
)

// CheckInLink builds the guest-facing online check-in URL. The booking id
// from the external system is the primary code; manually created
// reservations fall back to the internal id. Same inputs always produce
// byte-identical output so invitation and re-send paths share one link.
func CheckInLink(reservation *models.Reservation, language string) string {
	code := fmt.Sprint(reservation.ID)
	if reservation.ExternalID != nil && *reservation.ExternalID != "" {
		code = *reservation.ExternalID
	}
	email := ""
	if reservation.GuestEmail != nil {
		email = *reservation.GuestEmail
	}
	if len(language) > 2 {
		language = language[:2]
	}
	params := url.Values{}
	params.Set("codigo", code)
	params.Set("email", email)
	params.Set("lg", language)
	return fmt.Sprintf("%s/confirmar?%s", config.CheckInHost(), params.Encode())
}
